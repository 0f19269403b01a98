package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		pollTicks,
		trackedAnalyses,
		monitorRuns,
		cacheRequests,
	)
}

var (
	// Background refresh ticks, by result (ok|error|terminal).
	pollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_poll_ticks_total",
			Help: "Status poll ticks by result.",
		},
		[]string{"result"},
	)

	trackedAnalyses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyses_tracked",
			Help: "Analyses currently being polled.",
		},
	)

	// Monitor scheduling passes, by result (ok|error).
	monitorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_runs_total",
			Help: "Recurring-monitor runs by result.",
		},
		[]string{"result"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_cache_requests_total",
			Help: "Analysis cache lookups by status (hit|miss|error).",
		},
		[]string{"status"},
	)
)

func IncPollTick(result string) { pollTicks.WithLabelValues(result).Inc() }

func TrackingStarted() { trackedAnalyses.Inc() }

func TrackingStopped() { trackedAnalyses.Dec() }

func IncMonitorRun(result string) { monitorRuns.WithLabelValues(result).Inc() }

func IncCacheRequest(status string) { cacheRequests.WithLabelValues(status).Inc() }
