package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain/ports/adapter"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase fronts one Verifier per checkout session. The registry is
// the latch across page reloads: re-entering Verify with the same session id
// joins the existing run instead of starting a second one.
type CheckoutUseCase interface {
	// Verify runs (or joins) the verification of sessionID and blocks until a
	// terminal state or ctx is done.
	Verify(ctx context.Context, sessionID string) (*VerifyResult, error)
	// Retry restarts verification for a session that already reached a
	// terminal state, with attempt count reset and a fresh safety timeout.
	Retry(ctx context.Context, sessionID string) (*VerifyResult, error)
}

type checkoutUC struct {
	backend adapter.AnalyticsBackend
	balance BalanceUseCase
	policy  VerifyPolicy
	// runCtx bounds every verification run; it outlives individual HTTP
	// requests so a dropped connection does not abandon a run mid-flight.
	runCtx context.Context
	log    *zerolog.Logger

	mu   sync.Mutex
	runs map[string]*Verifier
}

func NewCheckoutUseCase(runCtx context.Context, backend adapter.AnalyticsBackend, balance BalanceUseCase, policy VerifyPolicy, logger *zerolog.Logger) *checkoutUC {
	clog := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		backend: backend,
		balance: balance,
		policy:  policy.normalized(),
		runCtx:  runCtx,
		log:     &clog,
		runs:    make(map[string]*Verifier),
	}
}

func (u *checkoutUC) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	v := u.verifier(sessionID)
	v.Begin(u.runCtx)
	return v.Wait(ctx)
}

func (u *checkoutUC) Retry(ctx context.Context, sessionID string) (*VerifyResult, error) {
	v := u.verifier(sessionID)
	if !v.Begin(u.runCtx) {
		v.Retry(u.runCtx)
	}
	return v.Wait(ctx)
}

func (u *checkoutUC) verifier(sessionID string) *Verifier {
	u.mu.Lock()
	defer u.mu.Unlock()
	if v, ok := u.runs[sessionID]; ok {
		return v
	}
	u.prune()
	v := NewVerifier(sessionID, u.backend, u.balance, u.policy, u.log)
	u.runs[sessionID] = v
	return v
}

// prune drops settled verifiers once the registry grows large. Sessions are
// transient; nothing about them is worth retaining.
func (u *checkoutUC) prune() {
	const maxRuns = 1024
	if len(u.runs) < maxRuns {
		return
	}
	for id, v := range u.runs {
		if v.State().Terminal() {
			delete(u.runs, id)
		}
	}
}
