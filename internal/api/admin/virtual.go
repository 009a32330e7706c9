package admin

import (
	"net/http"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) getActiveContests(c *gin.Context) {
	active, err := database.GetAllActiveVirtualContests(h.db.WithContext(c.Request.Context()))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, active)
}

// abortActiveContest discards a user's attempt, e.g. one stuck in a state
// its owner cannot leave.
func (h *Handler) abortActiveContest(c *gin.Context) {
	userID := c.Param("userID")
	if err := h.service.Abort(c.Request.Context(), userID); err != nil {
		util.Fail(c, err)
		return
	}
	zap.S().Warnf("admin aborted the active virtual contest of user %s", userID)
	util.OK(c)
}
