package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/infra/metrics"
	"commentiq-monitor/internal/infra/worker"
	"commentiq-monitor/internal/usecase"
)

// MonitorWorker periodically scans for due monitors and hands each one to the
// worker pool, which requests a fresh analysis and starts tracking it. This
// covers both regular cadence runs and monitors missed during downtime.
type MonitorWorker struct {
	uc       usecase.MonitorUseCase
	pool     *worker.Pool
	interval time.Duration // how often to scan
	batch    int           // max monitors per scan
	log      *zerolog.Logger
}

func NewMonitorWorker(uc usecase.MonitorUseCase, pool *worker.Pool, interval time.Duration, batch int, logger *zerolog.Logger) *MonitorWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	mlog := logger.With().Str("component", "MonitorWorker").Logger()
	return &MonitorWorker{uc: uc, pool: pool, interval: interval, batch: batch, log: &mlog}
}

func (w *MonitorWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("starting monitor worker")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping monitor worker")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *MonitorWorker) tick(ctx context.Context) {
	due, err := w.uc.DueMonitors(ctx, time.Now(), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list due monitors failed")
		return
	}
	for _, m := range due {
		m := m
		err := w.pool.Submit(func(taskCtx context.Context) error {
			if err := w.uc.RunOne(taskCtx, m); err != nil {
				metrics.IncMonitorRun("error")
				w.log.Error().Err(err).Str("monitor_id", m.ID).Msg("monitor run failed")
				return nil // logged here; nothing for the pool to add
			}
			metrics.IncMonitorRun("ok")
			return nil
		})
		if err != nil {
			w.log.Warn().Err(err).Str("monitor_id", m.ID).Msg("monitor run not scheduled")
		}
	}
}
