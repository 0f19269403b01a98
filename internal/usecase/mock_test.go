//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/domain/ports/repository"
)

// --- Mock AnalyticsBackend ---

// MockBackend implements adapter.AnalyticsBackend with overridable hooks and
// per-method call counters.
type MockBackend struct {
	mu sync.Mutex

	FetchAnalysisFunc func(ctx context.Context, id string, silent bool) (*model.Analysis, error)
	RequestFunc       func(ctx context.Context, videoURL, platform string) (*model.Analysis, error)
	VerifyFunc        func(ctx context.Context, sessionID string) (*model.VerifyReceipt, error)
	FetchBalanceFunc  func(ctx context.Context) (model.TokenBalance, error)

	fetchCalls   int
	requestCalls int
	verifyCalls  int
	balanceCalls int
}

func (m *MockBackend) FetchAnalysis(ctx context.Context, id string, silent bool) (*model.Analysis, error) {
	m.mu.Lock()
	m.fetchCalls++
	fn := m.FetchAnalysisFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrNotFound
	}
	return fn(ctx, id, silent)
}

func (m *MockBackend) RequestAnalysis(ctx context.Context, videoURL, platform string) (*model.Analysis, error) {
	m.mu.Lock()
	m.requestCalls++
	fn := m.RequestFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, domain.ErrInvalidArgument
	}
	return fn(ctx, videoURL, platform)
}

func (m *MockBackend) VerifyCheckoutSession(ctx context.Context, sessionID string) (*model.VerifyReceipt, error) {
	m.mu.Lock()
	m.verifyCalls++
	fn := m.VerifyFunc
	m.mu.Unlock()
	if fn == nil {
		return &model.VerifyReceipt{}, nil
	}
	return fn(ctx, sessionID)
}

func (m *MockBackend) FetchBalance(ctx context.Context) (model.TokenBalance, error) {
	m.mu.Lock()
	m.balanceCalls++
	fn := m.FetchBalanceFunc
	m.mu.Unlock()
	if fn == nil {
		return model.TokenBalance{Tokens: 0, RefreshedAt: time.Now()}, nil
	}
	return fn(ctx)
}

func (m *MockBackend) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

func (m *MockBackend) VerifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyCalls
}

func (m *MockBackend) RequestCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCalls
}

func (m *MockBackend) BalanceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceCalls
}

// --- Mock AnalysisCache ---

type MockCache struct {
	mu    sync.Mutex
	store map[string]*model.Analysis
}

func NewMockCache() *MockCache {
	return &MockCache{store: make(map[string]*model.Analysis)}
}

var _ repository.AnalysisCache = (*MockCache)(nil)

func (c *MockCache) Store(ctx context.Context, a *model.Analysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *a
	c.store[a.ID] = &cp
	return nil
}

func (c *MockCache) Get(ctx context.Context, id string) (*model.Analysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (c *MockCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, id)
	return nil
}

// --- Mock MonitorRepository ---

type MockMonitorRepo struct {
	mu       sync.Mutex
	store    map[string]*model.Monitor
	SaveFunc func(ctx context.Context, m *model.Monitor) error
	markRuns int
}

func NewMockMonitorRepo() *MockMonitorRepo {
	return &MockMonitorRepo{store: make(map[string]*model.Monitor)}
}

var _ repository.MonitorRepository = (*MockMonitorRepo)(nil)

func (r *MockMonitorRepo) Save(ctx context.Context, m *model.Monitor) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.store[m.ID] = &cp
	return nil
}

func (r *MockMonitorRepo) FindByID(ctx context.Context, id string) (*model.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockMonitorRepo) List(ctx context.Context, offset, limit int) ([]*model.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Monitor, 0, len(r.store))
	for _, m := range r.store {
		cp := *m
		out = append(out, &cp)
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

func (r *MockMonitorRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Monitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Monitor
	for _, m := range r.store {
		if m.Due(now) && len(out) < limit {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockMonitorRepo) MarkRun(ctx context.Context, id string, ranAt, nextRunAt time.Time, analysisID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	ra := ranAt
	m.LastRunAt = &ra
	m.NextRunAt = nextRunAt
	m.LastAnalysisID = analysisID
	r.markRuns++
	return nil
}

func (r *MockMonitorRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *MockMonitorRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.store), nil
}

func (r *MockMonitorRepo) MarkRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markRuns
}

// unconfirmedErr builds the backend's "session not settled yet" error.
func unconfirmedErr(status string) error {
	return &adapter.APIError{
		StatusCode:    400,
		Message:       "payment not confirmed",
		PaymentStatus: status,
	}
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
