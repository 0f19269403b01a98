package repository

import (
	"context"

	"commentiq-monitor/internal/domain/model"
)

// AnalysisCache holds the last-known snapshot of analyses so read traffic does
// not hit the backend on every request. Best-effort: callers treat failures as
// cache misses.
type AnalysisCache interface {
	Store(ctx context.Context, a *model.Analysis) error
	// Get returns domain.ErrNotFound on a miss.
	Get(ctx context.Context, id string) (*model.Analysis, error)
	Delete(ctx context.Context, id string) error
}
