package virtual

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/ZJUSCT/OITrack/internal/platform"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.Storage{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	return db
}

// seedContest publishes a contest with n fresh problems.
func seedContest(t *testing.T, db *gorm.DB, name string, duration, n int) *models.Contest {
	t.Helper()
	problems := make([]models.Problem, n)
	for i := range problems {
		problems[i] = models.Problem{Name: fmt.Sprintf("%s P%d", name, i+1), Source: name, Year: 2000, Number: i + 1}
		require.NoError(t, db.Create(&problems[i]).Error)
	}
	return seedContestWithProblems(t, db, name, duration, problems)
}

// seedContestWithProblems publishes a contest over already stored problems.
func seedContestWithProblems(t *testing.T, db *gorm.DB, name string, duration int, problems []models.Problem) *models.Contest {
	t.Helper()
	contest := models.Contest{Name: name, Slug: name, Duration: duration}
	require.NoError(t, db.Omit(clause.Associations).Create(&contest).Error)
	for i, p := range problems {
		cp := models.ContestProblem{ContestID: contest.ID, ProblemIndex: i, ProblemID: p.ID}
		require.NoError(t, db.Omit(clause.Associations).Create(&cp).Error)
	}
	stored, err := database.GetContestByNameStage(db, name, "")
	require.NoError(t, err)
	return stored
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, db *gorm.DB, providers ...platform.Provider) (*Service, *testClock) {
	t.Helper()
	syncer := NewSyncer(platform.NewRegistry(providers...), platform.NewLocalLocker(), newMemStore(nil), nil, time.Second)
	svc := NewService(db, syncer, nil)
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc, clock
}

type fakeProvider struct {
	name  string
	subs  []platform.Submission
	err   error
	delay time.Duration

	mu       sync.Mutex
	requests []platform.FetchRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) FetchContestScores(ctx context.Context, req platform.FetchRequest) ([]platform.Submission, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.subs, nil
}

func (p *fakeProvider) lastRequest() platform.FetchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore(values map[string]string) *memStore {
	if values == nil {
		values = make(map[string]string)
	}
	return &memStore{values: values}
}

func (s *memStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name], nil
}

func (s *memStore) Save(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return nil
}

// gatedProvider answers its first call at once and holds every later call
// until gate is closed, signalling entered when it starts waiting.
type gatedProvider struct {
	fakeProvider
	calls   atomic.Int32
	entered chan struct{}
	gate    chan struct{}
}

func newGatedProvider(name string, subs []platform.Submission) *gatedProvider {
	return &gatedProvider{
		fakeProvider: fakeProvider{name: name, subs: subs},
		entered:      make(chan struct{}, 1),
		gate:         make(chan struct{}),
	}
}

func (p *gatedProvider) FetchContestScores(ctx context.Context, req platform.FetchRequest) ([]platform.Submission, error) {
	if p.calls.Add(1) > 1 {
		p.entered <- struct{}{}
		select {
		case <-p.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.fakeProvider.FetchContestScores(ctx, req)
}
