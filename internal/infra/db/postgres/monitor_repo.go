package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/repository"
)

// Ensure interface compliance at compile time
var _ repository.MonitorRepository = (*MonitorRepo)(nil)

// MonitorRepo implements repository.MonitorRepository using Postgres.
//
// DB columns: id TEXT PRIMARY KEY, video_url TEXT, platform TEXT,
// cadence_seconds BIGINT, active BOOLEAN, last_run_at TIMESTAMPTZ NULL,
// next_run_at TIMESTAMPTZ, last_analysis_id TEXT, created_at TIMESTAMPTZ,
// updated_at TIMESTAMPTZ, UNIQUE (video_url, platform).
type MonitorRepo struct {
	pool *pgxpool.Pool
}

func NewMonitorRepo(pool *pgxpool.Pool) *MonitorRepo {
	return &MonitorRepo{pool: pool}
}

func (r *MonitorRepo) Save(ctx context.Context, m *model.Monitor) error {
	const sql = `
INSERT INTO monitors (id, video_url, platform, cadence_seconds, active, last_run_at, next_run_at, last_analysis_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  video_url = EXCLUDED.video_url,
  platform = EXCLUDED.platform,
  cadence_seconds = EXCLUDED.cadence_seconds,
  active = EXCLUDED.active,
  last_run_at = EXCLUDED.last_run_at,
  next_run_at = EXCLUDED.next_run_at,
  last_analysis_id = EXCLUDED.last_analysis_id,
  updated_at = now();
`
	_, err := r.pool.Exec(ctx, sql,
		m.ID,
		m.VideoURL,
		m.Platform,
		int64(m.Cadence/time.Second),
		m.Active,
		m.LastRunAt,
		m.NextRunAt,
		m.LastAnalysisID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres Save monitor: %w", err)
	}
	return nil
}

const monitorColumns = `id, video_url, platform, cadence_seconds, active, last_run_at, next_run_at, last_analysis_id, created_at, updated_at`

func scanMonitor(row pgx.Row) (*model.Monitor, error) {
	var (
		m       model.Monitor
		seconds int64
	)
	if err := row.Scan(
		&m.ID,
		&m.VideoURL,
		&m.Platform,
		&seconds,
		&m.Active,
		&m.LastRunAt,
		&m.NextRunAt,
		&m.LastAnalysisID,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Cadence = time.Duration(seconds) * time.Second
	return &m, nil
}

func (r *MonitorRepo) FindByID(ctx context.Context, id string) (*model.Monitor, error) {
	const sql = `SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1;`
	m, err := scanMonitor(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres FindByID monitor: %w", err)
	}
	return m, nil
}

func (r *MonitorRepo) List(ctx context.Context, offset, limit int) ([]*model.Monitor, error) {
	const sql = `SELECT ` + monitorColumns + ` FROM monitors ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := r.pool.Query(ctx, sql, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres List monitors: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Monitor, 0, limit)
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres List monitors scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MonitorRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error) {
	const sql = `
SELECT ` + monitorColumns + `
FROM monitors
WHERE active AND next_run_at <= $1
ORDER BY next_run_at ASC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, sql, now, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres ListDue monitors: %w", err)
	}
	defer rows.Close()

	var out []*model.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres ListDue monitors scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MonitorRepo) MarkRun(ctx context.Context, id string, ranAt, nextRunAt time.Time, analysisID string) error {
	const sql = `
UPDATE monitors
SET last_run_at = $2, next_run_at = $3, last_analysis_id = $4, updated_at = now()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, sql, id, ranAt, nextRunAt, analysisID)
	if err != nil {
		return fmt.Errorf("postgres MarkRun monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("postgres Delete monitor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM monitors;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres Count monitors: %w", err)
	}
	return n, nil
}
