package virtual

import (
	"context"
	"testing"

	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemProgressNeverDecreases(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	first := seedContest(t, db, "IOI 2019", 300, 2)

	// A mirror contest reusing the same problems.
	shared := []models.Problem{first.Problems[0].Problem, first.Problems[1].Problem}
	seedContestWithProblems(t, db, "IOI 2019 Mirror", 300, shared)
	svc, _ := newTestService(t, db)

	require.NoError(t, svc.Start(ctx, "u1", "IOI 2019", "", false))
	_, err := svc.End(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Submit(ctx, "u1", []float64{100, 20}))

	require.NoError(t, svc.Start(ctx, "u1", "IOI 2019 Mirror", "", false))
	_, err = svc.End(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, svc.Submit(ctx, "u1", []float64{30, 60}))

	ids := []uint{shared[0].ID, shared[1].ID}
	progress, err := database.GetUserProblemData(db, "u1", ids)
	require.NoError(t, err)
	assert.Equal(t, 100.0, progress[ids[0]].Score)
	assert.Equal(t, models.StatusSolved, progress[ids[0]].Status)
	assert.Equal(t, 60.0, progress[ids[1]].Score)
	assert.Equal(t, models.StatusAttempted, progress[ids[1]].Status)
}

func TestFinalizeRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	apio := seedContest(t, db, "APIO 2020", 300, 3)
	svc, _ := newTestService(t, db)

	require.NoError(t, svc.Start(ctx, "u1", "APIO 2020", "", false))
	_, err := svc.End(ctx, "u1")
	require.NoError(t, err)

	// A history record that appeared after the attempt was started.
	require.NoError(t, database.CreateUserVirtualContest(db, &models.UserVirtualContest{
		UserID:    "u1",
		ContestID: apio.ID,
		Score:     10,
	}))

	assert.ErrorIs(t, svc.Submit(ctx, "u1", []float64{100, 100, 100}), ErrConflict)

	// Nothing of the failed finalization is kept.
	_, err = database.GetActiveVirtualContest(db, "u1")
	require.NoError(t, err)
	progress, err := database.GetUserProblemData(db, "u1", []uint{apio.Problems[0].ProblemID})
	require.NoError(t, err)
	assert.Empty(t, progress)
}
