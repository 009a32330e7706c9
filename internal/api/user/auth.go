package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ZJUSCT/OITrack/internal/auth"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		credentials
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	_, err := database.GetUserByUsername(h.db, req.Username)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		if err == nil {
			util.Error(c, http.StatusConflict, "username already exists")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	newUser := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Nickname:     req.Nickname,
	}
	if newUser.Nickname == "" {
		newUser.Nickname = newUser.Username
	}

	if err := database.CreateUser(h.db, &newUser); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.Error(c, http.StatusConflict, "username already exists")
			return
		}
		util.Error(c, http.StatusInternalServerError, err)
		return
	}

	zap.S().Infof("new user registered: %s", newUser.Username)
	h.issueToken(c, &newUser)
}

func (h *Handler) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	user, err := database.GetUserByUsername(h.db, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, "invalid username or password")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		util.Error(c, http.StatusUnauthorized, "invalid username or password")
		return
	}
	h.issueToken(c, user)
}

func (h *Handler) issueToken(c *gin.Context, user *models.User) {
	token, err := auth.GenerateJWT(user.ID, user.Username, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"token": token, "id": user.ID, "username": user.Username})
}
