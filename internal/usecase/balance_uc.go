package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
)

// Compile-time check
var _ BalanceUseCase = (*balanceUC)(nil)

// BalanceUseCase owns the session's token balance. The balance is observable
// and has exactly one writer path: Refresh, which always re-fetches the
// authoritative value from the backend. There is no increment/decrement API.
type BalanceUseCase interface {
	// Refresh re-synchronizes the balance from the backend and notifies
	// subscribers. Idempotent and safe to call redundantly.
	Refresh(ctx context.Context) (model.TokenBalance, error)
	// Current returns the last fetched balance (zero value before the first
	// successful Refresh).
	Current() model.TokenBalance
	// Subscribe registers fn to be called after every successful Refresh.
	// The returned func removes the subscription.
	Subscribe(fn func(model.TokenBalance)) (unsubscribe func())
}

type balanceUC struct {
	backend adapter.AnalyticsBackend
	log     *zerolog.Logger

	mu      sync.Mutex
	current model.TokenBalance
	subs    map[int]func(model.TokenBalance)
	nextSub int
}

func NewBalanceUseCase(backend adapter.AnalyticsBackend, logger *zerolog.Logger) *balanceUC {
	blog := logger.With().Str("component", "BalanceUC").Logger()
	return &balanceUC{
		backend: backend,
		log:     &blog,
		subs:    make(map[int]func(model.TokenBalance)),
	}
}

func (u *balanceUC) Refresh(ctx context.Context) (model.TokenBalance, error) {
	fresh, err := u.backend.FetchBalance(ctx)
	if err != nil {
		return model.TokenBalance{}, err
	}

	u.mu.Lock()
	u.current = fresh
	fns := make([]func(model.TokenBalance), 0, len(u.subs))
	for _, fn := range u.subs {
		fns = append(fns, fn)
	}
	u.mu.Unlock()

	// Notify outside the lock; a subscriber calling back into the store must
	// not deadlock.
	for _, fn := range fns {
		fn(fresh)
	}
	u.log.Debug().Int64("tokens", fresh.Tokens).Msg("balance refreshed")
	return fresh, nil
}

func (u *balanceUC) Current() model.TokenBalance {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current
}

func (u *balanceUC) Subscribe(fn func(model.TokenBalance)) func() {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := u.nextSub
	u.nextSub++
	u.subs[id] = fn
	return func() {
		u.mu.Lock()
		defer u.mu.Unlock()
		delete(u.subs, id)
	}
}
