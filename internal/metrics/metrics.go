// Package metrics declares the Prometheus collectors shared across packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AICalls counts text-generation calls by outcome (ok, error, canceled).
	AICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_ai_calls_total",
		Help: "Text-generation calls by outcome",
	}, []string{"outcome"})

	// AIDuration tracks text-generation latency including retries.
	AIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_ai_call_duration_seconds",
		Help:    "Text-generation call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
	})

	// StageResults counts analysis stage results by stage and outcome (ok, empty, failed).
	StageResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_analysis_stage_total",
		Help: "Analysis stage results by stage and outcome",
	}, []string{"stage", "outcome"})

	// StoreCommits counts note store commits by outcome (ok, rolled_back).
	StoreCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_store_commits_total",
		Help: "Note store commits by outcome",
	}, []string{"outcome"})

	// StoreCommitDuration tracks note store commit latency.
	StoreCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_store_commit_duration_seconds",
		Help:    "Note store commit duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	// DraftFlushes counts debounced draft flushes by outcome (ok, failed).
	DraftFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_draft_flushes_total",
		Help: "Debounced draft flushes by outcome",
	}, []string{"outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
