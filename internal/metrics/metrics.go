package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for feedhub
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Ingestion Metrics
	IngestionRunsTotal    prometheus.CounterVec
	IngestionRunDuration  prometheus.HistogramVec
	RecordsProcessedTotal prometheus.CounterVec
	RecordsFailedTotal    prometheus.CounterVec
	ConnectionTestsTotal  prometheus.CounterVec

	// Scheduler Metrics
	SchedulerJobDuration prometheus.HistogramVec
	SchedulerJobFailures prometheus.CounterVec
	SchedulerJobsLoaded  prometheus.Gauge
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry registered
// against the default Prometheus registerer
func NewMetricsRegistry() *MetricsRegistry {
	return NewMetricsRegistryWith(prometheus.DefaultRegisterer)
}

// NewMetricsRegistryWith registers all metrics against reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewMetricsRegistryWith(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedhub_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "feedhub_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Ingestion Metrics
		IngestionRunsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_ingestion_runs_total",
				Help: "Total ingestion runs by final status and trigger",
			},
			[]string{"status", "triggered_by"},
		),
		IngestionRunDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedhub_ingestion_run_duration_seconds",
				Help:    "Ingestion run wall time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"source_kind"},
		),
		RecordsProcessedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_records_processed_total",
				Help: "Canonical records written to the catalog by outcome",
			},
			[]string{"outcome"},
		),
		RecordsFailedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_records_failed_total",
				Help: "Records rejected during validation or upsert",
			},
			[]string{"reason"},
		),
		ConnectionTestsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_connection_tests_total",
				Help: "Connection tests by transport kind and result",
			},
			[]string{"kind", "result"},
		),

		// Scheduler Metrics
		SchedulerJobDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feedhub_scheduler_job_duration_seconds",
				Help:    "Scheduled job execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"job_type"},
		),
		SchedulerJobFailures: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedhub_scheduler_job_failures_total",
				Help: "Scheduled job executions that returned an error",
			},
			[]string{"job_type"},
		),
		SchedulerJobsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "feedhub_scheduler_jobs_loaded",
				Help: "Jobs currently held in the scheduler table",
			},
		),
	}
}
