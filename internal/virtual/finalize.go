package virtual

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// finalize promotes an ended attempt into history in a single transaction:
// fold scores into problem progress, create the history record, move the
// raw submissions onto it and delete the active record. Any failure rolls
// everything back, leaving the attempt ready to be finalized again.
func (s *Service) finalize(ctx context.Context, active *models.ActiveVirtualContest, score float64, perProblem []float64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := foldProgress(tx, active.UserID, active.Contest.Problems, perProblem); err != nil {
			return fmt.Errorf("fold problem progress: %w", err)
		}

		vc := models.UserVirtualContest{
			UserID:           active.UserID,
			ContestID:        active.ContestID,
			StartedAt:        active.StartedAt,
			EndedAt:          *active.EndedAt,
			Score:            score,
			PerProblemScores: models.Scores(append([]float64(nil), perProblem...)),
		}
		if err := database.CreateUserVirtualContest(tx, &vc); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(ErrConflict, "You've already completed this virtual contest")
			}
			return fmt.Errorf("create history record: %w", err)
		}

		problemIDs := make([]uint, 0, len(active.Contest.Problems))
		for _, p := range active.Contest.Problems {
			problemIDs = append(problemIDs, p.ID)
		}
		if err := database.ReparentSubmissions(tx, active.UserID, vc.ID, problemIDs); err != nil {
			return fmt.Errorf("move submissions: %w", err)
		}

		// A concurrent finalization may have won; its deletion makes this one a no-op.
		if err := database.DeleteActiveVirtualContest(tx, active.UserID); err != nil {
			return notFoundOr(err, "No active virtual contest exists")
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.S().Infof("user %s finalized virtual contest %s with score %g", active.UserID, contestKey(&active.Contest), score)
	return nil
}

// foldProgress raises the user's stored per-problem scores to the attempt's
// scores where those are higher. Stored scores never decrease.
func foldProgress(tx *gorm.DB, userID string, problems []models.ContestProblem, perProblem []float64) error {
	ids := make([]uint, 0, len(problems))
	for _, p := range problems {
		ids = append(ids, p.ProblemID)
	}
	existing, err := database.GetUserProblemData(tx, userID, ids)
	if err != nil {
		return err
	}

	for _, p := range problems {
		if p.ProblemIndex < 0 || p.ProblemIndex >= len(perProblem) {
			continue
		}
		current, ok := existing[p.ProblemID]
		newScore := max(current.Score, perProblem[p.ProblemIndex])
		if ok && newScore == current.Score {
			continue
		}
		if !ok && newScore <= 0 {
			continue
		}
		record := models.UserProblemData{
			UserID:    userID,
			ProblemID: p.ProblemID,
			Score:     newScore,
			Status:    max(current.Status, statusFor(newScore)),
		}
		if err := database.UpsertUserProblemData(tx, &record); err != nil {
			return err
		}
	}
	return nil
}

func statusFor(score float64) models.ProblemStatus {
	switch {
	case score >= 100:
		return models.StatusSolved
	case score > 0:
		return models.StatusAttempted
	default:
		return models.StatusUntouched
	}
}
