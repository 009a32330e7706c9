package user

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/ZJUSCT/OITrack/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"
)

const recentAttempts = 3

// legacySlug matches short contest ids such as "apio2020" or "boi2021day1".
var legacySlug = regexp.MustCompile(`^([a-z]+)(\d{4})(.*)$`)

func (h *Handler) getSummary(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	userID := c.GetString("userID")

	var active *models.ActiveVirtualContest
	record, err := database.GetActiveVirtualContest(db, userID)
	switch {
	case err == nil:
		active = record
	case !errors.Is(err, gorm.ErrRecordNotFound):
		util.Fail(c, err)
		return
	}

	history, err := database.GetUserVirtualContests(db, userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	completed := make([]string, 0, len(history))
	for _, vc := range history {
		completed = append(completed, vc.Contest.Name+"|"+vc.Contest.Stage)
	}

	contests, err := database.GetAllContests(db)
	if err != nil {
		util.Fail(c, err)
		return
	}

	recent := history
	if len(recent) > recentAttempts {
		recent = recent[:recentAttempts]
	}

	util.Success(c, gin.H{
		"activeContest":     active,
		"completedContests": completed,
		"contests":          contests,
		"recent":            recent,
	})
}

func (h *Handler) getHistory(c *gin.Context) {
	history, err := database.GetUserVirtualContests(h.db.WithContext(c.Request.Context()), c.GetString("userID"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, history)
}

func (h *Handler) getDetail(c *gin.Context) {
	var req struct {
		ContestID uint   `json:"contestId"`
		Slug      string `json:"slug"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	contestID := req.ContestID
	if contestID == 0 {
		if req.Slug == "" {
			util.Error(c, http.StatusBadRequest, "contestId or slug is required")
			return
		}
		contest, err := findContestBySlug(db, req.Slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusNotFound, "Contest not found")
			} else {
				util.Fail(c, err)
			}
			return
		}
		contestID = contest.ID
	}

	vc, err := database.GetUserVirtualContest(db, c.GetString("userID"), contestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, "You haven't attempted that contest yet")
		} else {
			util.Fail(c, err)
		}
		return
	}
	util.Success(c, vc)
}

// findContestBySlug resolves the stored slug first and then the short
// "<source><year><stage>" form.
func findContestBySlug(db *gorm.DB, slug string) (*models.Contest, error) {
	contest, err := database.GetContestBySlug(db, slug)
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return contest, err
	}
	name, stage, ok := parseLegacySlug(slug)
	if !ok {
		return nil, err
	}
	return database.GetContestByNameStage(db, name, stage)
}

func parseLegacySlug(slug string) (name, stage string, ok bool) {
	m := legacySlug.FindStringSubmatch(strings.ToLower(slug))
	if m == nil {
		return "", "", false
	}
	name = strings.ToUpper(m[1]) + " " + m[2]
	if rest := strings.Trim(m[3], "-_ "); rest != "" {
		if strings.HasPrefix(rest, "day") {
			stage = "Day " + strings.TrimLeft(rest[3:], "-_ ")
		} else {
			stage = strings.ToUpper(rest[:1]) + rest[1:]
		}
	}
	return name, stage, true
}

func (h *Handler) getContestScores(c *gin.Context) {
	var req struct {
		ContestIDs []uint `json:"contestIds" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	contests, err := database.GetContestsWithScores(h.db.WithContext(c.Request.Context()), req.ContestIDs)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, contests)
}

func (h *Handler) getStats(c *gin.Context) {
	var req struct {
		ContestID uint `json:"contestId" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), c.GetString("userID"), req.ContestID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, stats)
}
