// Package metrics exposes the monitor's Prometheus instrumentation. All
// collectors register on the default registry and are served by the health
// server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/squadwatch/lineup-monitor/internal/pkg/resilience"
)

const namespace = "lineup_monitor"

var (
	// upstreamRequests counts guarded upstream calls.
	// Labels: endpoint (fixtures, lineups), outcome (success, not_published, error, rejected).
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "request_seconds",
		Help:      "Upstream request latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint"})

	// cacheOperations counts lookups per cache.
	// Labels: cache (fixtures, lineups), result (hit, miss).
	cacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Cache lookups by cache and result",
	}, []string{"cache", "result"})

	// breakerState mirrors the circuit breaker state machine:
	// 0 closed, 1 open, 2 half-open.
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"dependency"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Circuit breaker transitions by target state",
	}, []string{"dependency", "to"})

	// monitorCycles counts monitoring cycles.
	// Labels: outcome (ok, error).
	monitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Monitoring cycles by outcome",
	}, []string{"outcome"})

	monitorCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "monitor",
		Name:      "cycle_seconds",
		Help:      "Monitoring cycle duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	watchedMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "monitor",
		Name:      "watched_matches",
		Help:      "Matches currently on the watch list",
	})

	alertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "generated_total",
		Help:      "Alerts generated by urgency",
	}, []string{"urgency"})

	// deliveries counts per-channel alert delivery attempts.
	// Labels: channel (telegram, discord, email, nats), result (ok, error).
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "alerts",
		Name:      "deliveries_total",
		Help:      "Alert delivery attempts by channel and result",
	}, []string{"channel", "result"})
)

func RecordUpstreamRequest(endpoint, outcome string, seconds float64) {
	upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	upstreamLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordUpstreamRejected counts a call stopped before reaching the network,
// by the open breaker or a cancelled limiter wait.
func RecordUpstreamRejected(endpoint string) {
	upstreamRequests.WithLabelValues(endpoint, "rejected").Inc()
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheOperations.WithLabelValues(cache, result).Inc()
}

func RecordBreakerTransition(dependency string, to resilience.State) {
	breakerState.WithLabelValues(dependency).Set(float64(to))
	breakerTransitions.WithLabelValues(dependency, to.String()).Inc()
}

func RecordCycle(err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	monitorCycles.WithLabelValues(outcome).Inc()
	monitorCycleDuration.Observe(seconds)
}

func SetWatchedMatches(n int) {
	watchedMatches.Set(float64(n))
}

func RecordAlert(urgency string) {
	alertsGenerated.WithLabelValues(urgency).Inc()
}

func RecordDelivery(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	deliveries.WithLabelValues(channel, result).Inc()
}
