package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/domain/ports/repository"
	"commentiq-monitor/internal/infra/logging"
)

// Compile-time check
var _ MonitorUseCase = (*monitorUC)(nil)

// MonitorUseCase manages recurring monitoring schedules: each due monitor
// gets a fresh analysis requested and tracked to completion.
type MonitorUseCase interface {
	Create(ctx context.Context, videoURL, platform string, cadence time.Duration) (*model.Monitor, error)
	Get(ctx context.Context, id string) (*model.Monitor, error)
	List(ctx context.Context, offset, limit int) ([]*model.Monitor, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error

	// DueMonitors returns monitors ready to run at now.
	DueMonitors(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error)
	// RunOne requests a fresh analysis for the monitor, records the run, and
	// starts tracking the analysis until it settles.
	RunOne(ctx context.Context, m *model.Monitor) error
}

type monitorUC struct {
	monitors repository.MonitorRepository
	cache    repository.AnalysisCache
	backend  adapter.AnalyticsBackend
	tracker  TrackerUseCase
	// trackCtx bounds tracking loops started by RunOne; they belong to the
	// service, not to the scheduling pass that spawned them.
	trackCtx context.Context
	cadence  time.Duration // default when the caller passes none
	log      *zerolog.Logger
}

func NewMonitorUseCase(trackCtx context.Context, monitors repository.MonitorRepository, cache repository.AnalysisCache, backend adapter.AnalyticsBackend, tracker TrackerUseCase, defaultCadence time.Duration, logger *zerolog.Logger) *monitorUC {
	if defaultCadence <= 0 {
		defaultCadence = 24 * time.Hour
	}
	mlog := logger.With().Str("component", "MonitorUC").Logger()
	return &monitorUC{
		monitors: monitors,
		cache:    cache,
		backend:  backend,
		tracker:  tracker,
		trackCtx: trackCtx,
		cadence:  defaultCadence,
		log:      &mlog,
	}
}

func (u *monitorUC) Create(ctx context.Context, videoURL, platform string, cadence time.Duration) (*model.Monitor, error) {
	if cadence <= 0 {
		cadence = u.cadence
	}
	m, err := model.NewMonitor("", videoURL, platform, cadence)
	if err != nil {
		return nil, err
	}
	if err := u.monitors.Save(ctx, m); err != nil {
		return nil, err
	}
	u.log.Info().Str("monitor_id", m.ID).Str("video_url", m.VideoURL).Dur("cadence", m.Cadence).Msg("monitor created")
	return m, nil
}

func (u *monitorUC) Get(ctx context.Context, id string) (*model.Monitor, error) {
	return u.monitors.FindByID(ctx, id)
}

func (u *monitorUC) List(ctx context.Context, offset, limit int) ([]*model.Monitor, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.monitors.List(ctx, offset, limit)
}

func (u *monitorUC) Count(ctx context.Context) (int, error) {
	return u.monitors.Count(ctx)
}

func (u *monitorUC) Delete(ctx context.Context, id string) error {
	return u.monitors.Delete(ctx, id)
}

func (u *monitorUC) DueMonitors(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error) {
	return u.monitors.ListDue(ctx, now, limit)
}

func (u *monitorUC) RunOne(ctx context.Context, m *model.Monitor) error {
	defer logging.TraceDuration(u.log, "MonitorUC.RunOne")()
	ctx = logging.WithMonitorID(ctx, m.ID)

	a, err := u.backend.RequestAnalysis(ctx, m.VideoURL, m.Platform)
	if err != nil {
		return err
	}
	ctx = logging.WithAnalysisID(ctx, a.ID)
	log := logging.With(ctx, u.log)

	now := time.Now()
	if err := u.monitors.MarkRun(ctx, m.ID, now, now.Add(m.Cadence), a.ID); err != nil {
		// The analysis is already running backend-side; record the failure
		// but keep tracking it.
		log.Error().Err(err).Msg("mark run failed")
	}
	if err := u.cache.Store(ctx, a); err != nil {
		log.Warn().Err(err).Msg("cache store failed")
	}

	u.tracker.Track(u.trackCtx, a, func(fresh *model.Analysis) {
		if fresh.Status.Terminal() {
			log.Info().
				Str("status", string(fresh.Status)).
				Msg("monitored analysis settled")
		}
	})
	return nil
}
