package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ZJUSCT/OITrack/internal/catalog"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) reload(c *gin.Context) {
	zap.S().Info("starting catalog reload...")

	contests, err := catalog.Load(h.cfg.Catalog.Root)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	published, err := catalog.Publish(h.db.WithContext(c.Request.Context()), contests)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	zap.S().Infof("catalog reloaded: %d of %d contests published", published, len(contests))

	util.Success(c, gin.H{
		"success":           true,
		"contestsLoaded":    len(contests),
		"contestsPublished": published,
	})
}

func (h *Handler) getAllContests(c *gin.Context) {
	contests, err := database.GetAllContests(h.db.WithContext(c.Request.Context()))
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, contests)
}

func (h *Handler) getContest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.Error(c, http.StatusBadRequest, "invalid contest id")
		return
	}
	contest, err := database.GetContestByID(h.db.WithContext(c.Request.Context()), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "contest not found")
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	util.Success(c, contest)
}
