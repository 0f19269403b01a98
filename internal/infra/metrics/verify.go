package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		verifyCalls,
		verifyRuns,
		verifyDuration,
		verifyThrottled,
	)
}

var (
	// Individual verify calls against the backend, by outcome.
	// outcome: paid|already_processed|unconfirmed|error
	verifyCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_verify_calls_total",
			Help: "Backend verify calls by outcome.",
		},
		[]string{"outcome"},
	)

	// Whole verification runs, by final state and bounded reason.
	// state: confirmed|already_processed|hard_error
	// reason (hard_error only): missing_session|exhausted|timeout|cancelled|backend|unknown
	verifyRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_verify_runs_total",
			Help: "Completed verification runs by final state and reason.",
		},
		[]string{"state", "reason"},
	)

	// End-to-end duration of a verification run, by final state.
	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_verify_run_duration_seconds",
			Help:    "Duration of a verification run in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"state"},
	)

	verifyThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_verify_throttled_total",
			Help: "Verification requests rejected by the rate limiter.",
		},
	)
)

func IncVerifyCall(outcome string) {
	verifyCalls.WithLabelValues(outcome).Inc()
}

func IncVerifyThrottled() { verifyThrottled.Inc() }

func ObserveVerifyRun(state, reason string, seconds float64) {
	if reason == "" {
		reason = "none"
	}
	verifyRuns.WithLabelValues(state, reason).Inc()
	verifyDuration.WithLabelValues(state).Observe(seconds)
}
