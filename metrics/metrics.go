// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AIAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_ai_attempts_total",
			Help: "Model calls made by the analysis fallback chain",
		},
		[]string{"model", "outcome"},
	)

	AIAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helios_ai_attempt_duration_seconds",
			Help:    "Duration of individual model calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model"},
	)

	AIFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helios_ai_fallbacks_total",
			Help: "Times the chain advanced to the next model after a retryable error",
		},
	)

	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_analysis_requests_total",
			Help: "Contract analysis requests by result",
		},
		[]string{"result"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "helios_extraction_duration_seconds",
			Help: "Text extraction duration per document format",
		},
		[]string{"format"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_analysis_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"},
	)

	RenewalReminders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helios_renewal_reminders_total",
			Help: "Renewal reminders emitted by the scheduled scan",
		},
	)
)
