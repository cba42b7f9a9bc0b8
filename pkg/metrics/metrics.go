package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "treko_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "treko_http_requests_in_flight",
			Help: "Requests currently holding a serving slot",
		},
	)

	HTTPRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_http_requests_rejected_total",
			Help: "Requests rejected before reaching a handler",
		},
		[]string{"reason"},
	)

	BootstrapStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "treko_bootstrap_stage_duration_seconds",
			Help:    "Time taken by each startup stage",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"stage", "outcome"},
	)

	PayloadsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_payloads_ingested_total",
			Help: "Tracking payloads processed",
		},
		[]string{"outcome"},
	)

	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_jobs_enqueued_total",
			Help: "Background jobs enqueued",
		},
		[]string{"type"},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_jobs_processed_total",
			Help: "Background jobs finished, by outcome",
		},
		[]string{"type", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "treko_job_duration_seconds",
			Help:    "Time taken to run a background job",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "treko_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"},
	)
)

// Job outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeRetry      = "retry"
	OutcomeDeadLetter = "dead_letter"
	OutcomeFailure    = "failure"
)
