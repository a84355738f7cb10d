// Package metrics holds the module's Prometheus collectors. The teacher
// exposes simple counters/gauges directly via prometheus/client_golang
// with no OpenTelemetry wrapper (see DESIGN.md); this module follows the
// same pattern for its two ambient signals: cache memoization hit rate
// and executor utilization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheDigestLookups counts digest memoization lookups by tier
	// (l1/l2/disk) and outcome (hit/miss), so an operator can see how much
	// of an incremental build's fingerprinting was skipped.
	CacheDigestLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocgen",
		Subsystem: "cache",
		Name:      "digest_lookups_total",
		Help:      "Digest memoization lookups, partitioned by tier and outcome.",
	}, []string{"tier", "outcome"})

	// ExecutorInFlight reports how many submitted tasks are currently
	// executing in the bounded pool, a rough utilization signal.
	ExecutorInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocgen",
		Subsystem: "executor",
		Name:      "tasks_in_flight",
		Help:      "Tasks currently running in the bounded executor pool.",
	})
)

func init() {
	prometheus.MustRegister(CacheDigestLookups, ExecutorInFlight)
}
