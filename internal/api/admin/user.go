package admin

import (
	"errors"
	"net/http"

	"github.com/ZJUSCT/OITrack/internal/auth"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) getAllUsers(c *gin.Context) {
	users, err := database.GetUsers(h.db.WithContext(c.Request.Context()), c.Query("query"))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, users)
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := database.GetUserByID(h.db, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "user not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	handles, err := database.GetPlatformUsernames(h.db, user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"user": user, "platformUsernames": handles})
}

func (h *Handler) getUserHistory(c *gin.Context) {
	userID := c.Param("id")
	if _, err := database.GetUserByID(h.db, userID); err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}
	history, err := database.GetUserVirtualContests(h.db, userID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, history)
}

func (h *Handler) resetUserPassword(c *gin.Context) {
	user, err := database.GetUserByID(h.db, c.Param("id"))
	if err != nil {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, "failed to hash new password")
		return
	}

	user.PasswordHash = hashedPassword
	if err := database.UpdateUser(h.db, user); err != nil {
		util.Error(c, http.StatusInternalServerError, "failed to update user password")
		return
	}

	zap.S().Warnf("admin reset password for user %s (%s)", user.Username, user.ID)
	util.OK(c)
}
