package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/infra/logging"
	"commentiq-monitor/internal/infra/metrics"
)

// VerifyState enumerates the verification state machine:
//
//	Idle -> Verifying -> {Confirmed, AlreadyProcessed, HardError}
//	Verifying -> Unconfirmed -> Verifying (retry, bounded)
//
// Unconfirmed is the only state that schedules an automatic retry. The safety
// timeout forces HardError from any non-terminal state.
type VerifyState string

const (
	VerifyStateIdle             VerifyState = "idle"
	VerifyStateVerifying        VerifyState = "verifying"
	VerifyStateUnconfirmed      VerifyState = "unconfirmed"
	VerifyStateConfirmed        VerifyState = "confirmed"
	VerifyStateAlreadyProcessed VerifyState = "already_processed"
	VerifyStateHardError        VerifyState = "hard_error"
)

// Terminal reports whether no further automatic transition can occur.
func (s VerifyState) Terminal() bool {
	switch s {
	case VerifyStateConfirmed, VerifyStateAlreadyProcessed, VerifyStateHardError:
		return true
	}
	return false
}

// VerifyPolicy carries the retry/timeout constants. Zero fields get the
// production defaults; tests inject millisecond-scale values.
type VerifyPolicy struct {
	RetryDelay    time.Duration // wait between unconfirmed attempts
	MaxRetries    int           // retries after the initial call
	SafetyTimeout time.Duration // wall-clock bound for the whole run
}

func (p VerifyPolicy) normalized() VerifyPolicy {
	if p.RetryDelay <= 0 {
		p.RetryDelay = 2 * time.Second
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 5
	}
	if p.SafetyTimeout <= 0 {
		p.SafetyTimeout = 15 * time.Second
	}
	return p
}

// VerifyResult is the terminal outcome of one verification run.
type VerifyResult struct {
	RunID     string
	SessionID string
	State     VerifyState
	Receipt   *model.VerifyReceipt // set on Confirmed / AlreadyProcessed
	Calls     int                  // verify calls actually issued
	TimedOut  bool
	Message   string // user-facing message for HardError
	Err       error
}

// Verifier drives verification of a single checkout session. Begin is a
// one-shot latch: re-entry does not start a second run; only an explicit
// Retry re-arms it. All transitions happen on the run goroutine, with timers
// as the only side-channel input.
type Verifier struct {
	sessionID string
	backend   adapter.AnalyticsBackend
	balance   BalanceUseCase
	policy    VerifyPolicy
	log       *zerolog.Logger

	// OnTransition, when set before Begin, observes every state change
	// together with the 0-based attempt index.
	OnTransition func(VerifyState, int)

	mu      sync.Mutex
	started bool
	state   VerifyState
	result  *VerifyResult
	done    chan struct{}
}

func NewVerifier(sessionID string, backend adapter.AnalyticsBackend, balance BalanceUseCase, policy VerifyPolicy, logger *zerolog.Logger) *Verifier {
	vlog := logger.With().
		Str("component", "Verifier").
		Str("session_id", logging.Redact(sessionID, false)).
		Logger()
	return &Verifier{
		sessionID: sessionID,
		backend:   backend,
		balance:   balance,
		policy:    policy.normalized(),
		log:       &vlog,
		state:     VerifyStateIdle,
		done:      make(chan struct{}),
	}
}

// Begin starts the verification run at most once. It reports whether this
// call actually started the run.
func (v *Verifier) Begin(ctx context.Context) bool {
	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return false
	}
	v.started = true
	done := v.done
	v.mu.Unlock()

	if v.sessionID == "" {
		// No session id, no network call, no timers.
		v.finish(done, &VerifyResult{
			SessionID: v.sessionID,
			State:     VerifyStateHardError,
			Message:   "missing checkout session",
			Err:       domain.ErrMissingSession,
		}, time.Now())
		return true
	}

	go v.run(ctx, done)
	return true
}

// Retry re-arms the one-shot latch after a terminal state: attempt count is
// reset and a fresh safety timeout is armed. It reports whether a new run was
// started.
func (v *Verifier) Retry(ctx context.Context) bool {
	v.mu.Lock()
	if !v.started || !v.state.Terminal() {
		v.mu.Unlock()
		return false
	}
	if v.sessionID == "" {
		// A manual retry cannot conjure up a session id.
		v.mu.Unlock()
		return false
	}
	v.state = VerifyStateIdle
	v.result = nil
	v.done = make(chan struct{})
	done := v.done
	v.mu.Unlock()

	v.log.Info().Msg("manual retry requested")
	go v.run(ctx, done)
	return true
}

// Wait blocks until a run reaches a terminal state or ctx is done. A Retry
// may reset the run between the done channel closing and the result read;
// Wait then waits on the new run instead of surfacing the gap, so a settled
// Wait always carries a non-nil result.
func (v *Verifier) Wait(ctx context.Context) (*VerifyResult, error) {
	for {
		v.mu.Lock()
		result := v.result
		done := v.done
		v.mu.Unlock()

		if result != nil {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-done:
		}
	}
}

// State returns the current state without blocking.
func (v *Verifier) State() VerifyState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Result returns the terminal result, or nil while the run is in flight.
func (v *Verifier) Result() *VerifyResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

type verifyOutcome struct {
	receipt *model.VerifyReceipt
	err     error
}

func (v *Verifier) run(ctx context.Context, done chan struct{}) {
	start := time.Now()
	runID := ulid.Make().String()
	log := v.log.With().Str("run_id", runID).Logger()

	// Calls in flight when the run ends must not outlive it.
	vctx, cancel := context.WithCancel(ctx)
	defer cancel()

	safety := time.NewTimer(v.policy.SafetyTimeout)
	defer safety.Stop()

	for call := 0; ; call++ {
		v.transition(VerifyStateVerifying, call)
		log.Debug().Int("attempt", call).Msg("verifying checkout session")

		outc := make(chan verifyOutcome, 1)
		go func() {
			r, err := v.backend.VerifyCheckoutSession(vctx, v.sessionID)
			outc <- verifyOutcome{receipt: r, err: err}
		}()

		select {
		case <-ctx.Done():
			v.finish(done, &VerifyResult{
				RunID:     runID,
				SessionID: v.sessionID,
				State:     VerifyStateHardError,
				Calls:     call,
				Message:   "verification cancelled",
				Err:       domain.ErrVerifyCancelled,
			}, start)
			return

		case <-safety.C:
			log.Warn().Int("calls", call+1).Msg("safety timeout reached")
			v.finish(done, &VerifyResult{
				RunID:     runID,
				SessionID: v.sessionID,
				State:     VerifyStateHardError,
				Calls:     call,
				TimedOut:  true,
				Message:   "verification is taking longer than expected",
				Err:       domain.ErrVerifyTimeout,
			}, start)
			return

		case out := <-outc:
			calls := call + 1
			if ctx.Err() != nil {
				// The owner went away while the call was in flight; the
				// outcome races with ctx.Done and must not win.
				v.finish(done, &VerifyResult{
					RunID:     runID,
					SessionID: v.sessionID,
					State:     VerifyStateHardError,
					Calls:     calls,
					Message:   "verification cancelled",
					Err:       domain.ErrVerifyCancelled,
				}, start)
				return
			}
			if out.err == nil {
				// Terminal state and timer cancellation are one atomic step
				// from the caller's perspective: stop the timer before any
				// side effect runs.
				safety.Stop()
				state := VerifyStateConfirmed
				if out.receipt.AlreadyProcessed {
					state = VerifyStateAlreadyProcessed
				}
				v.refreshBalance(log)
				log.Info().Int("calls", calls).Str("state", string(state)).Msg("checkout settled")
				v.finish(done, &VerifyResult{
					RunID:     runID,
					SessionID: v.sessionID,
					State:     state,
					Receipt:   out.receipt,
					Calls:     calls,
				}, start)
				return
			}

			if retryEligible(out.err) && calls <= v.policy.MaxRetries {
				v.transition(VerifyStateUnconfirmed, call)
				log.Debug().Int("attempt", call).Msg("session unconfirmed; retry scheduled")
				delay := time.NewTimer(v.policy.RetryDelay)
				select {
				case <-ctx.Done():
					delay.Stop()
					v.finish(done, &VerifyResult{
						RunID:     runID,
						SessionID: v.sessionID,
						State:     VerifyStateHardError,
						Calls:     calls,
						Message:   "verification cancelled",
						Err:       domain.ErrVerifyCancelled,
					}, start)
					return
				case <-safety.C:
					delay.Stop()
					log.Warn().Int("calls", calls).Msg("safety timeout reached while waiting to retry")
					v.finish(done, &VerifyResult{
						RunID:     runID,
						SessionID: v.sessionID,
						State:     VerifyStateHardError,
						Calls:     calls,
						TimedOut:  true,
						Message:   "verification is taking longer than expected",
						Err:       domain.ErrVerifyTimeout,
					}, start)
					return
				case <-delay.C:
				}
				continue
			}

			safety.Stop()
			message := "payment verification failed"
			err := out.err
			if retryEligible(out.err) {
				message = "payment was not confirmed in time"
				err = domain.ErrVerifyExhausted
			} else if apiErr, ok := adapter.AsAPIError(out.err); ok && apiErr.Message != "" {
				message = apiErr.Message
			}
			// Best-effort refresh so the visible balance is not stale even
			// when verification fails.
			v.refreshBalance(log)
			log.Warn().Err(out.err).Int("calls", calls).Msg("verification hard error")
			v.finish(done, &VerifyResult{
				RunID:     runID,
				SessionID: v.sessionID,
				State:     VerifyStateHardError,
				Calls:     calls,
				Message:   message,
				Err:       err,
			}, start)
			return
		}
	}
}

// retryEligible is deliberately narrow: only an HTTP 400 whose body carried a
// parseable, non-"paid" status field marks a not-yet-settled session. Other
// 400s (malformed session id and friends) are hard errors.
func retryEligible(err error) bool {
	apiErr, ok := adapter.AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		apiErr.PaymentStatus != "" &&
		apiErr.PaymentStatus != "paid"
}

func (v *Verifier) refreshBalance(log zerolog.Logger) {
	if v.balance == nil {
		return
	}
	// Detached from the run's context: the refresh is a fire-and-forget
	// side effect and balance is always re-derivable later.
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := v.balance.Refresh(rctx); err != nil {
		log.Warn().Err(err).Msg("balance refresh failed")
	}
}

func (v *Verifier) transition(state VerifyState, attempt int) {
	v.mu.Lock()
	v.state = state
	hook := v.OnTransition
	v.mu.Unlock()
	if hook != nil {
		hook(state, attempt)
	}
}

func (v *Verifier) finish(done chan struct{}, result *VerifyResult, start time.Time) {
	v.mu.Lock()
	v.state = result.State
	v.result = result
	hook := v.OnTransition
	v.mu.Unlock()

	metrics.ObserveVerifyRun(string(result.State), hardErrorReason(result), time.Since(start).Seconds())
	if hook != nil {
		// Runs that never reached the backend settle with zero calls;
		// observers still get a 0-based attempt index.
		attempt := result.Calls - 1
		if attempt < 0 {
			attempt = 0
		}
		hook(result.State, attempt)
	}
	close(done)
}

func hardErrorReason(r *VerifyResult) string {
	if r.State != VerifyStateHardError {
		return ""
	}
	switch {
	case errors.Is(r.Err, domain.ErrMissingSession):
		return "missing_session"
	case r.TimedOut:
		return "timeout"
	case errors.Is(r.Err, domain.ErrVerifyCancelled):
		return "cancelled"
	case errors.Is(r.Err, domain.ErrVerifyExhausted):
		return "exhausted"
	default:
		return "backend"
	}
}
