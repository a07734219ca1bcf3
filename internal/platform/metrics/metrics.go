// Package metrics holds the Prometheus collectors for the ingestion run.
// They register on the default registerer and are served by the
// observability metrics server when METRICS_ADDR is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cricket_ingest"

var (
	// FetchRequests counts page requests by page kind and outcome
	// (ok, http_error, transport_error, circuit_open).
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Source page requests by page kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Source page request latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Page fetch retries by page kind",
		},
		[]string{"kind"},
	)

	PageCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_cache_requests_total",
			Help:      "Page cache lookups by backend and result (hit, miss, error)",
		},
		[]string{"backend", "result"},
	)

	// Matches counts finished matches by outcome (completed, failed, skipped).
	Matches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Matches processed by outcome",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Wall time to fetch, parse and persist one match",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// Rows counts persisted rows by table and result (inserted, failed).
	Rows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows written by table and result",
		},
		[]string{"table", "result"},
	)

	ParseIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_issues_total",
			Help:      "Dropped or degraded parse fragments by page kind",
		},
		[]string{"kind"},
	)

	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"dependency"},
	)
)

// CircuitStateValue maps breaker state names onto the CircuitState gauge.
func CircuitStateValue(state string) float64 {
	switch state {
	case "open":
		return 2
	case "half_open":
		return 1
	default:
		return 0
	}
}
