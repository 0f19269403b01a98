package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/domain/ports/repository"
	"commentiq-monitor/internal/infra/metrics"
)

// Compile-time check
var _ TrackerUseCase = (*trackerUC)(nil)

// TrackerUseCase keeps local copies of analyses fresh while the backend may
// still be mutating them.
type TrackerUseCase interface {
	// Snapshot returns the last known state of an analysis, hitting the
	// backend only on a cache miss. This is the foreground fetch path;
	// errors here surface to the caller.
	Snapshot(ctx context.Context, id string) (*model.Analysis, error)

	// Track starts background polling for the analysis. It is a no-op
	// (inactive handle, no timer armed) unless the status is processing.
	// onUpdate is invoked for every successful refresh; it is never invoked
	// after the returned handle is stopped or ctx is cancelled.
	Track(ctx context.Context, a *model.Analysis, onUpdate func(*model.Analysis)) *Tracking
}

// Tracking is the handle for one polling loop. Whoever starts the loop owns
// the handle and must arrange for Stop (or context cancellation) on every
// exit path, so timers never leak.
type Tracking struct {
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Active reports whether a polling loop was actually started.
func (t *Tracking) Active() bool { return t.active }

// Done is closed when the loop has fully exited.
func (t *Tracking) Done() <-chan struct{} { return t.done }

// Stop cancels the loop and waits for it to exit. Idempotent.
func (t *Tracking) Stop() {
	t.cancel()
	<-t.done
}

func inactiveTracking() *Tracking {
	done := make(chan struct{})
	close(done)
	return &Tracking{active: false, cancel: func() {}, done: done}
}

type trackerUC struct {
	backend  adapter.AnalyticsBackend
	cache    repository.AnalysisCache
	interval time.Duration
	log      *zerolog.Logger
}

func NewTrackerUseCase(backend adapter.AnalyticsBackend, cache repository.AnalysisCache, interval time.Duration, logger *zerolog.Logger) *trackerUC {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	tlog := logger.With().Str("component", "TrackerUC").Logger()
	return &trackerUC{backend: backend, cache: cache, interval: interval, log: &tlog}
}

func (u *trackerUC) Snapshot(ctx context.Context, id string) (*model.Analysis, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	if a, err := u.cache.Get(ctx, id); err == nil {
		return a, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Str("analysis_id", id).Msg("cache lookup failed")
	}
	a, err := u.backend.FetchAnalysis(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := u.cache.Store(ctx, a); err != nil {
		u.log.Warn().Err(err).Str("analysis_id", id).Msg("cache store failed")
	}
	return a, nil
}

func (u *trackerUC) Track(ctx context.Context, a *model.Analysis, onUpdate func(*model.Analysis)) *Tracking {
	if a == nil || a.Status != model.AnalysisStatusProcessing {
		// Nothing to poll: pending analyses are announced via a fresh fetch,
		// terminal ones never change again.
		return inactiveTracking()
	}

	tctx, cancel := context.WithCancel(ctx)
	t := &Tracking{active: true, cancel: cancel, done: make(chan struct{})}
	metrics.TrackingStarted()

	go u.loop(tctx, a.ID, onUpdate, t.done)
	return t
}

// loop issues one fetch per tick. The loop body is sequential, so at most one
// fetch is in flight per analysis regardless of the configured interval.
func (u *trackerUC) loop(ctx context.Context, id string, onUpdate func(*model.Analysis), done chan struct{}) {
	defer close(done)
	defer metrics.TrackingStopped()

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.log.Debug().Str("analysis_id", id).Dur("interval", u.interval).Msg("tracking started")
	for {
		select {
		case <-ctx.Done():
			u.log.Debug().Str("analysis_id", id).Msg("tracking stopped")
			return
		case <-ticker.C:
			fresh, err := u.backend.FetchAnalysis(ctx, id, true)
			if err != nil {
				// Background refresh failures are non-fatal: keep the last
				// good state and let the next tick proceed unchanged.
				if ctx.Err() == nil {
					metrics.IncPollTick("error")
					u.log.Warn().Err(err).Str("analysis_id", id).Msg("poll fetch failed")
				}
				continue
			}
			if ctx.Err() != nil {
				// Owner went away while the fetch was in flight: deliver
				// nothing to a defunct owner.
				return
			}
			if err := u.cache.Store(ctx, fresh); err != nil {
				u.log.Warn().Err(err).Str("analysis_id", id).Msg("cache store failed")
			}
			onUpdate(fresh)
			if fresh.Status.Terminal() {
				metrics.IncPollTick("terminal")
				u.log.Info().Str("analysis_id", id).Str("status", string(fresh.Status)).Msg("analysis reached terminal status")
				return
			}
			metrics.IncPollTick("ok")
		}
	}
}
