package repository

import (
	"context"
	"time"

	"commentiq-monitor/internal/domain/model"
)

// -----------------------------
// Monitors
// -----------------------------

type MonitorRepository interface {
	Save(ctx context.Context, m *model.Monitor) error
	FindByID(ctx context.Context, id string) (*model.Monitor, error)
	List(ctx context.Context, offset, limit int) ([]*model.Monitor, error)
	// ListDue returns active monitors whose next_run_at is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error)
	// MarkRun records a completed scheduling pass for the monitor.
	MarkRun(ctx context.Context, id string, ranAt, nextRunAt time.Time, analysisID string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
