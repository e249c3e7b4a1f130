// Package telemetry registers the crawl run's Prometheus collectors,
// grounded on the teacher's internal/metrics/metrics.go and
// internal/progress/sinks/prometheus.go: counters/gauges/histograms built
// once with promauto and served over promhttp.Handler(). Every metric here
// tracks a spec §6 logging-event outcome (artifact, duplicate,
// family-skipped, redacted, stop) rather than the teacher's job-queue
// concerns, which have no analogue in a single-run crawl.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ArtifactsTotal counts saved artifacts by kind (html|js|api).
	ArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcrawl_artifacts_total",
			Help: "Total artifacts saved, labeled by kind.",
		},
		[]string{"kind"},
	)

	// DuplicatesTotal counts URLs skipped as exact or near-duplicates.
	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcrawl_duplicates_total",
			Help: "Total duplicate-content skips, labeled by kind and reason (content-hash|simhash|etag).",
		},
		[]string{"kind", "reason"},
	)

	// FamilySkippedTotal counts hits skipped by the family sample cap.
	FamilySkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcrawl_family_skipped_total",
			Help: "Total URLs skipped because their family's sample quota was saturated.",
		},
	)

	// RedactedTotal counts API artifacts that had at least one substitution.
	RedactedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcrawl_redacted_total",
			Help: "Total API/JSON artifacts with at least one redaction applied.",
		},
	)

	// FetchAttemptsTotal counts fetch attempts by outcome.
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcrawl_fetch_attempts_total",
			Help: "Total fetch attempts, labeled by outcome (ok|retry|error).",
		},
		[]string{"outcome"},
	)

	// FetchLatencySeconds observes per-fetch wall time.
	FetchLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcrawl_fetch_latency_seconds",
			Help:    "Fetch latency in seconds, from dequeue to response.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// ErrorsTotal counts errors by taxonomy kind (crawlerr.Kind values).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcrawl_errors_total",
			Help: "Total errors, labeled by taxonomy kind.",
		},
		[]string{"kind"},
	)

	// StopReasonTotal counts terminal stop-condition triggers, labeled by
	// reason (pages_max|js_max|api_max|time_max|error_rate|queue_empty|
	// signal).
	StopReasonTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcrawl_stop_total",
			Help: "Total run terminations, labeled by stop reason.",
		},
		[]string{"reason"},
	)

	// QueueDepth reports the scheduler's current pending item count.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcrawl_queue_depth",
			Help: "Number of items currently pending in the scheduler.",
		},
	)

	// BudgetRemaining reports the remaining artifact budget per kind.
	BudgetRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reconcrawl_budget_remaining",
			Help: "Remaining artifact budget, labeled by kind.",
		},
		[]string{"kind"},
	)
)

// Handler returns the standard Prometheus HTTP handler for wiring into the
// status server (internal/statusapi).
func Handler() http.Handler {
	return promhttp.Handler()
}
