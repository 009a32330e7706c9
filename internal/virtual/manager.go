// Package virtual runs timed virtual contests: the per-user attempt state
// machine, score sync and normalization, finalization into history and
// ranking against the historical population.
package virtual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/ZJUSCT/OITrack/internal/platform"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	syncer   *Syncer
	contexts *ContextRegistry
	now      func() time.Time
}

func NewService(db *gorm.DB, syncer *Syncer, contexts *ContextRegistry) *Service {
	if contexts == nil {
		contexts = NewContextRegistry(nil)
	}
	return &Service{
		db:       db,
		syncer:   syncer,
		contexts: contexts,
		now:      time.Now,
	}
}

// EndResult tells the caller what sync produced. Submissions is only
// meaningful for auto-synced attempts.
type EndResult struct {
	Autosynced  bool
	Submissions []models.VirtualSubmission
}

// Start opens a new attempt for the contest identified by (name, stage).
func (s *Service) Start(ctx context.Context, userID, name, stage string, autosynced bool) error {
	db := s.db.WithContext(ctx)

	var active int64
	if err := db.Model(&models.ActiveVirtualContest{}).Where("user_id = ?", userID).Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return newError(ErrConflict, "You already have an active virtual contest")
	}

	contest, err := database.GetContestByNameStage(db, name, stage)
	if err != nil {
		return notFoundOr(err, "Contest not found")
	}

	done, err := database.HasCompletedContest(db, userID, contest.ID)
	if err != nil {
		return err
	}
	if done {
		return newError(ErrConflict, "You've already completed this virtual contest")
	}

	record := models.ActiveVirtualContest{
		UserID:     userID,
		ContestID:  contest.ID,
		StartedAt:  s.now(),
		Autosynced: autosynced,
	}
	// The primary key on user_id is what guarantees a single attempt.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := database.CreateActiveVirtualContest(tx, &record); err != nil {
			return err
		}
		// Rows left behind by an attempt that no longer exists.
		return database.DeleteActiveSubmissions(tx, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return newError(ErrConflict, "You already have an active virtual contest")
		}
		return err
	}
	zap.S().Infof("user %s started virtual contest %s (autosynced: %t)", userID, contestKey(contest), autosynced)
	return nil
}

// End stops the clock of the user's attempt and, for auto-synced attempts,
// fetches and normalizes the scores. Calling it again keeps the recorded end
// time and redoes the sync from scratch.
func (s *Service) End(ctx context.Context, userID string) (*EndResult, error) {
	db := s.db.WithContext(ctx)

	active, err := database.GetActiveVirtualContest(db, userID)
	if err != nil {
		return nil, notFoundOr(err, "No active contest exists")
	}

	if active.EndedAt == nil {
		endedAt := s.now()
		if deadline := active.StartedAt.Add(active.Contest.Length()); endedAt.After(deadline) {
			endedAt = deadline
		}
		if err := database.UpdateActiveVirtualContest(db, userID, map[string]interface{}{"ended_at": endedAt}); err != nil {
			return nil, notFoundOr(err, "No active contest exists")
		}
		active.EndedAt = &endedAt
		zap.S().Infof("user %s ended virtual contest %s", userID, contestKey(&active.Contest))
	}

	if !active.Autosynced {
		return &EndResult{}, nil
	}

	subs, err := s.sync(ctx, active)
	if err != nil {
		return nil, err
	}
	return &EndResult{Autosynced: true, Submissions: subs}, nil
}

func (s *Service) sync(ctx context.Context, active *models.ActiveVirtualContest) ([]models.VirtualSubmission, error) {
	db := s.db.WithContext(ctx)

	handles, err := database.GetPlatformUsernames(db, active.UserID)
	if err != nil {
		return nil, err
	}

	var raw []platform.Submission
	if s.syncer != nil {
		raw = s.syncer.Sync(ctx, active.UserID, handles, describe(active))
	}

	known := make(map[uint]bool, len(active.Contest.Problems))
	for _, p := range active.Contest.Problems {
		known[p.ID] = true
	}
	subs := make([]models.VirtualSubmission, 0, len(raw))
	for _, r := range raw {
		if !known[r.ContestProblemID] {
			zap.S().Warnf("dropping submission for unknown contest problem %d", r.ContestProblemID)
			continue
		}
		subs = append(subs, models.VirtualSubmission{
			ContestProblemID: r.ContestProblemID,
			Time:             r.Time,
			Score:            r.Score,
			SubtaskScores:    models.Scores(r.SubtaskScores),
		})
	}

	total, perProblem := Normalize(active.Contest.Problems, subs)
	scores := models.Scores(perProblem)

	// The attempt may have been confirmed or aborted while providers were
	// running; its submissions must not outlive it.
	err = db.Transaction(func(tx *gorm.DB) error {
		current, err := database.GetActiveVirtualContestRow(tx, active.UserID)
		if err != nil {
			return err
		}
		if current.ContestID != active.ContestID || !current.StartedAt.Equal(active.StartedAt) {
			return gorm.ErrRecordNotFound
		}
		if err := database.UpdateActiveVirtualContest(tx, active.UserID, map[string]interface{}{
			"score":              total,
			"per_problem_scores": &scores,
		}); err != nil {
			return err
		}
		if err := database.DeleteActiveSubmissions(tx, active.UserID); err != nil {
			return err
		}
		return database.CreateSubmissions(tx, active.UserID, subs)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		zap.S().Warnf("user %s: attempt at %s finished while syncing, discarding synced scores", active.UserID, contestKey(&active.Contest))
		return nil, newError(ErrNotFound, "No active contest exists")
	}
	if err != nil {
		return nil, fmt.Errorf("persist synced scores: %w", err)
	}
	return subs, nil
}

// Submit finalizes a manually scored attempt.
func (s *Service) Submit(ctx context.Context, userID string, scores []float64) error {
	active, err := database.GetActiveVirtualContest(s.db.WithContext(ctx), userID)
	if err != nil {
		return notFoundOr(err, "No active virtual contest exists!")
	}
	if active.EndedAt == nil {
		return newError(ErrPreconditionFailed, "Contest not ended yet")
	}
	if active.Autosynced {
		return newError(ErrForbidden, "You can't manually modify scores for autosynced contests!")
	}
	n := len(active.Contest.Problems)
	if len(scores) != n {
		return newError(ErrBadRequest, "You must specify exactly %d scores", n)
	}
	for _, sc := range scores {
		if sc < 0 || sc > 100 {
			return newError(ErrBadRequest, "Scores must be between 0 and 100")
		}
	}
	return s.finalize(ctx, active, sum(scores), scores)
}

// Confirm finalizes an auto-synced attempt once its scores are in.
func (s *Service) Confirm(ctx context.Context, userID string) error {
	active, err := database.GetActiveVirtualContest(s.db.WithContext(ctx), userID)
	if err != nil {
		return notFoundOr(err, "No active virtual contest exists")
	}
	if active.EndedAt == nil || active.Score == nil || active.PerProblemScores == nil {
		return newError(ErrPreconditionFailed, "Contest not ended yet or data incomplete")
	}
	perProblem := []float64(*active.PerProblemScores)
	if len(perProblem) != len(active.Contest.Problems) {
		return newError(ErrPreconditionFailed, "Stored scores do not match the contest problems")
	}
	return s.finalize(ctx, active, *active.Score, perProblem)
}

// Abort throws away the user's attempt together with its raw submissions.
func (s *Service) Abort(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.DeleteActiveSubmissions(tx, userID); err != nil {
			return err
		}
		if err := database.DeleteActiveVirtualContest(tx, userID); err != nil {
			return notFoundOr(err, "No active virtual contest exists")
		}
		zap.S().Infof("aborted virtual contest of user %s", userID)
		return nil
	})
}

// SetContext attaches validated categorical context to a finished attempt.
func (s *Service) SetContext(ctx context.Context, userID string, contestID uint, typ string, data map[string]string) error {
	if err := s.contexts.Validate(typ, data); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	vc, err := database.GetUserVirtualContest(db, userID, contestID)
	if err != nil {
		return notFoundOr(err, "You haven't attempted that contest yet")
	}
	return database.UpdateUserContextData(db, vc.ID, data)
}

// Stats ranks the user's finished attempt against the contest population.
func (s *Service) Stats(ctx context.Context, userID string, contestID uint) (*Stats, error) {
	db := s.db.WithContext(ctx)
	vc, err := database.GetUserVirtualContest(db, userID, contestID)
	if err != nil {
		return nil, notFoundOr(err, "Contest not found; have you attempted it / does it exist?")
	}
	ref, err := database.GetContestScores(db, contestID)
	if err != nil {
		return nil, notFoundOr(err, "No reference scores exist for this contest")
	}
	return Rank(ref.ProblemScores.Data(), vc.PerProblemScores, vc.Score)
}

func (s *Service) Contexts() *ContextRegistry {
	return s.contexts
}

// describe builds the window and problem list a scraper searches.
func describe(active *models.ActiveVirtualContest) platform.Contest {
	c := platform.Contest{
		Name:      active.Contest.Name,
		Stage:     active.Contest.Stage,
		StartedAt: active.StartedAt,
		EndedAt:   *active.EndedAt,
	}
	for _, cp := range active.Contest.Problems {
		p := platform.ContestProblem{
			ContestProblemID: cp.ID,
			Index:            cp.ProblemIndex,
			Name:             cp.Problem.Name,
		}
		for _, l := range cp.Problem.Links {
			p.Links = append(p.Links, platform.Link{Platform: l.Platform, URL: l.URL})
		}
		c.Problems = append(c.Problems, p)
	}
	return c
}

func contestKey(c *models.Contest) string {
	if c.Stage == "" {
		return c.Name
	}
	return c.Name + " " + c.Stage
}
