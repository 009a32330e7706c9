// Package platform defines the contract with external judge platforms and
// the plumbing shared by their scrapers: script execution, shared session
// refresh and the per-platform lock guarding it.
package platform

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrUpstream marks a failure of an external platform. Callers treat it
// as "no data from this platform" rather than as a request failure.
var ErrUpstream = errors.New("upstream unavailable")

type Link struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type ContestProblem struct {
	ContestProblemID uint   `json:"contestProblemId"`
	Index            int    `json:"index"`
	Name             string `json:"name"`
	Links            []Link `json:"links"`
}

// Contest is the window a scraper searches for submissions.
type Contest struct {
	Name      string           `json:"name"`
	Stage     string           `json:"stage"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   time.Time        `json:"endedAt"`
	Problems  []ContestProblem `json:"problems"`
}

type Submission struct {
	ContestProblemID uint      `json:"contestProblemId"`
	Time             time.Time `json:"time"`
	Score            float64   `json:"score"`
	SubtaskScores    []float64 `json:"subtaskScores"`
}

type FetchRequest struct {
	Handle  string  `json:"handle"`
	Session string  `json:"session,omitempty"`
	Contest Contest `json:"contest"`
}

// Provider fetches a user's raw submissions for one contest window.
type Provider interface {
	Name() string
	FetchContestScores(ctx context.Context, req FetchRequest) ([]Submission, error)
}

// SessionProvider scrapes through one shared account whose session must be
// exchanged for a fresh one before scoring calls.
type SessionProvider interface {
	Provider
	GetValidSession(ctx context.Context, oldSession string) (string, error)
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered platform names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
