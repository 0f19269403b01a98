//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// --- Mock Use Cases ---

type mockCheckoutUC struct {
	mu          sync.Mutex
	VerifyFunc  func(ctx context.Context, sessionID string) (*usecase.VerifyResult, error)
	RetryFunc   func(ctx context.Context, sessionID string) (*usecase.VerifyResult, error)
	verifyCalls int
	retryCalls  int
}

func (m *mockCheckoutUC) Verify(ctx context.Context, sessionID string) (*usecase.VerifyResult, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.mu.Unlock()
	return m.VerifyFunc(ctx, sessionID)
}

func (m *mockCheckoutUC) Retry(ctx context.Context, sessionID string) (*usecase.VerifyResult, error) {
	m.mu.Lock()
	m.retryCalls++
	m.mu.Unlock()
	return m.RetryFunc(ctx, sessionID)
}

type mockTrackerUC struct {
	SnapshotFunc func(ctx context.Context, id string) (*model.Analysis, error)
}

func (m *mockTrackerUC) Snapshot(ctx context.Context, id string) (*model.Analysis, error) {
	return m.SnapshotFunc(ctx, id)
}

func (m *mockTrackerUC) Track(ctx context.Context, a *model.Analysis, onUpdate func(*model.Analysis)) *usecase.Tracking {
	return nil // the web layer never starts tracking loops
}

type mockBalanceUC struct {
	RefreshFunc func(ctx context.Context) (model.TokenBalance, error)
	cached      model.TokenBalance
}

func (m *mockBalanceUC) Refresh(ctx context.Context) (model.TokenBalance, error) {
	return m.RefreshFunc(ctx)
}

func (m *mockBalanceUC) Current() model.TokenBalance { return m.cached }

func (m *mockBalanceUC) Subscribe(fn func(model.TokenBalance)) func() { return func() {} }

type mockMonitorUC struct {
	mu       sync.Mutex
	monitors map[string]*model.Monitor
}

func newMockMonitorUC() *mockMonitorUC {
	return &mockMonitorUC{monitors: make(map[string]*model.Monitor)}
}

func (m *mockMonitorUC) Create(ctx context.Context, videoURL, platform string, cadence time.Duration) (*model.Monitor, error) {
	if cadence <= 0 {
		cadence = 24 * time.Hour
	}
	mon, err := model.NewMonitor("", videoURL, platform, cadence)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitors[mon.ID] = mon
	return mon, nil
}

func (m *mockMonitorUC) Get(ctx context.Context, id string) (*model.Monitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.monitors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return mon, nil
}

func (m *mockMonitorUC) List(ctx context.Context, offset, limit int) ([]*model.Monitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Monitor, 0, len(m.monitors))
	for _, mon := range m.monitors {
		out = append(out, mon)
	}
	if offset >= len(out) {
		return []*model.Monitor{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockMonitorUC) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors), nil
}

func (m *mockMonitorUC) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monitors[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.monitors, id)
	return nil
}

func (m *mockMonitorUC) DueMonitors(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error) {
	return nil, nil
}

func (m *mockMonitorUC) RunOne(ctx context.Context, mon *model.Monitor) error { return nil }

// --- Mock Rate Limiter ---

type mockLimiter struct {
	mu      sync.Mutex
	allow   bool
	err     error
	calls   int
	lastKey string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastKey = key
	return m.allow, m.err
}

// newTestServer wires a Server around the given mocks with permissive
// defaults for everything not under test.
func newTestServer(checkout usecase.CheckoutUseCase, tracker usecase.TrackerUseCase, monitor usecase.MonitorUseCase, balance usecase.BalanceUseCase, limiter RateLimiter) *Server {
	auth := NewAuthManager("test-session-secret-please-change", false, "", time.Minute)
	return NewServer(checkout, tracker, monitor, balance, limiter, VerifyLimits{Requests: 5, Window: time.Minute}, auth, "test-api-key", newTestLogger())
}
