package virtual

import (
	"context"
	"errors"
	"time"

	"github.com/ZJUSCT/OITrack/internal/platform"
	"github.com/ZJUSCT/OITrack/internal/pubsub"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Syncer fans a finished attempt out to every linked platform and collects
// whatever submissions come back. A failing or slow platform only loses its
// own contribution.
type Syncer struct {
	registry *platform.Registry
	locker   platform.Locker
	store    platform.CredentialStore
	broker   *pubsub.Broker
	timeout  time.Duration
}

func NewSyncer(registry *platform.Registry, locker platform.Locker, store platform.CredentialStore, broker *pubsub.Broker, timeout time.Duration) *Syncer {
	return &Syncer{
		registry: registry,
		locker:   locker,
		store:    store,
		broker:   broker,
		timeout:  timeout,
	}
}

type platformResult struct {
	platform    string
	submissions []platform.Submission
	err         error
}

// Sync dispatches to every platform that has both a handle and a registered
// provider, waits for all of them and returns the successful submissions.
func (s *Syncer) Sync(ctx context.Context, userID string, handles map[string]string, contest platform.Contest) []platform.Submission {
	var targets []platform.Provider
	for _, name := range s.registry.Names() {
		if handles[name] == "" {
			continue
		}
		p, _ := s.registry.Get(name)
		targets = append(targets, p)
	}

	topic := pubsub.SyncTopic(userID)
	results := make([]platformResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range targets {
		g.Go(func() error {
			subs, err := s.fetch(gctx, p, handles[p.Name()], contest)
			results[i] = platformResult{platform: p.Name(), submissions: subs, err: err}
			s.publish(topic, results[i])
			// Never fail the group: one platform must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	var all []platform.Submission
	for _, r := range results {
		if r.err != nil {
			zap.S().Warnf("sync for user %s dropped platform %s: %v", userID, r.platform, r.err)
			continue
		}
		all = append(all, r.submissions...)
	}
	zap.S().Infof("sync for user %s collected %d submissions from %d platforms", userID, len(all), len(targets))

	if s.broker != nil {
		s.broker.PublishEvent(topic, pubsub.SyncEvent{Type: "done", OK: true, Submissions: len(all)})
		s.broker.CloseTopic(topic)
	}
	return all
}

func (s *Syncer) fetch(ctx context.Context, p platform.Provider, handle string, contest platform.Contest) ([]platform.Submission, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := platform.FetchRequest{Handle: handle, Contest: contest}
	if sp, ok := p.(platform.SessionProvider); ok {
		session, err := platform.RefreshSession(ctx, s.locker, s.store, sp)
		if err != nil {
			return nil, err
		}
		req.Session = session
	}

	subs, err := p.FetchContestScores(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, platform.ErrUpstream) {
			err = errors.Join(platform.ErrUpstream, err)
		}
		return nil, err
	}
	return subs, nil
}

func (s *Syncer) publish(topic string, r platformResult) {
	if s.broker == nil {
		return
	}
	ev := pubsub.SyncEvent{Type: "platform", Platform: r.platform, OK: r.err == nil, Submissions: len(r.submissions)}
	if r.err != nil {
		ev.Error = r.err.Error()
	}
	s.broker.PublishEvent(topic, ev)
}
