package user

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func (h *Handler) getHandles(c *gin.Context) {
	handles, err := database.GetPlatformUsernames(h.db.WithContext(c.Request.Context()), c.GetString("userID"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"platformUsernames": handles})
}

// updateHandles merges the given handles into the stored ones. An empty
// value unlinks that platform.
func (h *Handler) updateHandles(c *gin.Context) {
	var req struct {
		PlatformUsernames map[string]string `json:"platformUsernames" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	for platform := range req.PlatformUsernames {
		if !h.platforms[platform] {
			util.Error(c, http.StatusBadRequest, fmt.Sprintf("Unknown platform %s", platform))
			return
		}
	}

	db := h.db.WithContext(c.Request.Context())
	userID := c.GetString("userID")
	handles, err := database.GetPlatformUsernames(db, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	for platform, handle := range req.PlatformUsernames {
		handle = strings.TrimSpace(handle)
		if handle == "" {
			delete(handles, platform)
			continue
		}
		handles[platform] = handle
	}
	if err := database.SavePlatformUsernames(db, userID, handles); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, gin.H{"success": true, "platformUsernames": handles})
}
