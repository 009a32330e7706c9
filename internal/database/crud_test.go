package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Init(config.Storage{Database: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	return db
}

func TestPlatformUsernames(t *testing.T) {
	db := newTestDB(t)

	handles, err := GetPlatformUsernames(db, "u1")
	require.NoError(t, err)
	assert.Empty(t, handles)

	require.NoError(t, SavePlatformUsernames(db, "u1", map[string]string{"oj.uz": "alice"}))
	require.NoError(t, SavePlatformUsernames(db, "u1", map[string]string{"oj.uz": "alice2", "qoj.ac": "al"}))

	handles, err = GetPlatformUsernames(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"oj.uz": "alice2", "qoj.ac": "al"}, handles)
}

func TestActiveAttemptIsUniquePerUser(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, CreateActiveVirtualContest(db, &models.ActiveVirtualContest{UserID: "u1", ContestID: 1, StartedAt: time.Now()}))
	err := CreateActiveVirtualContest(db, &models.ActiveVirtualContest{UserID: "u1", ContestID: 2, StartedAt: time.Now()})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, DeleteActiveVirtualContest(db, "u1"))
	assert.ErrorIs(t, DeleteActiveVirtualContest(db, "u1"), gorm.ErrRecordNotFound)
}

func TestReparentSubmissions(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, CreateSubmissions(db, "u1", []models.VirtualSubmission{
		{ContestProblemID: 1, Score: 10},
		{ContestProblemID: 2, Score: 20},
		{ContestProblemID: 7, Score: 70},
	}))
	require.NoError(t, CreateSubmissions(db, "u2", []models.VirtualSubmission{{ContestProblemID: 1, Score: 5}}))

	vc := models.UserVirtualContest{UserID: "u1", ContestID: 1}
	require.NoError(t, CreateUserVirtualContest(db, &vc))
	require.NoError(t, ReparentSubmissions(db, "u1", vc.ID, []uint{1, 2}))

	// Submissions for problems outside the contest stay where they were.
	active, err := GetActiveSubmissions(db, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint(7), active[0].ContestProblemID)

	var owned []models.VirtualSubmission
	require.NoError(t, db.Where("virtual_contest_id = ?", vc.ID).Find(&owned).Error)
	assert.Len(t, owned, 2)

	other, err := GetActiveSubmissions(db, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestUpdateActiveVirtualContest(t *testing.T) {
	db := newTestDB(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, CreateActiveVirtualContest(db, &models.ActiveVirtualContest{UserID: "u1", ContestID: 1, StartedAt: started}))

	require.NoError(t, UpdateActiveVirtualContest(db, "u1", map[string]interface{}{"score": 42.0}))
	row, err := GetActiveVirtualContestRow(db, "u1")
	require.NoError(t, err)
	require.NotNil(t, row.Score)
	assert.Equal(t, 42.0, *row.Score)
	assert.True(t, started.Equal(row.StartedAt))

	err = UpdateActiveVirtualContest(db, "u2", map[string]interface{}{"score": 1.0})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = GetActiveVirtualContestRow(db, "u2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPlatformCredential(t *testing.T) {
	db := newTestDB(t)

	value, err := GetPlatformCredential(db, "qoj.ac")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, SavePlatformCredential(db, "qoj.ac", "s1"))
	require.NoError(t, SavePlatformCredential(db, "qoj.ac", "s2"))
	value, err = GetPlatformCredential(db, "qoj.ac")
	require.NoError(t, err)
	assert.Equal(t, "s2", value)
}

func TestUnknownDriver(t *testing.T) {
	_, err := Init(config.Storage{Driver: "mysql", Database: "x"})
	assert.Error(t, err)
}
