// Package metrics provides Prometheus metrics for the furlong ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Ranking pipeline
	batches          *prometheus.CounterVec
	batchLatency     *prometheus.HistogramVec
	entitiesScored   prometheus.Counter
	entityErrors     *prometheus.CounterVec
	scorerFailures   *prometheus.CounterVec
	scorerLatency    *prometheus.HistogramVec
	fusionLatency    prometheus.Histogram
	temporalExcluded prometheus.Counter
	degradedResults  *prometheus.CounterVec

	// Collaborators
	historyLookups *prometheus.CounterVec
	modelsLoaded   prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "furlong",
		subsystem:      "engine",
		latencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:    map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.batches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batches_total",
		Help:        "Batches processed by mode (rank, predict, streak) and result status",
		ConstLabels: m.constLabels,
	}, []string{"mode", "status"})

	m.batchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_latency_ms",
		Help:        "End-to-end batch latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"mode"})

	m.entitiesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entities_scored_total",
		Help:        "Entities that received a fused score",
		ConstLabels: m.constLabels,
	})

	m.entityErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entity_errors_total",
		Help:        "Per-entity failures annotated on a result, by error kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.scorerFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scorer_failures_total",
		Help:        "Scorers excluded from a batch, by model id and error kind",
		ConstLabels: m.constLabels,
	}, []string{"model", "kind"})

	m.scorerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scorer_latency_ms",
		Help:        "Per-model scoring latency in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"model"})

	m.fusionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fusion_latency_ms",
		Help:        "Time spent fusing, ranking and signalling a batch in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	})

	m.temporalExcluded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "temporal_exclusions_total",
		Help:        "Historical rows dropped because they were not strictly before the event",
		ConstLabels: m.constLabels,
	})

	m.degradedResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "degraded_results_total",
		Help:        "Results returned in a degraded or fallback state",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.historyLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "history",
		Name:        "lookups_total",
		Help:        "Historical context lookups by result (hit, miss, cache_hit, error)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.modelsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "registry",
		Name:        "models_loaded",
		Help:        "Number of scoring models held by the registry",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_ms",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_endpoint_total",
		Help:        "Errors by HTTP endpoint",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "latency_ms",
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Current heap allocation in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Current number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_ms",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	})
}

// RecordBatch counts a processed batch and observes its latency.
func RecordBatch(mode, status string, latencyMs float64) {
	globalManager.batches.WithLabelValues(mode, status).Inc()
	globalManager.batchLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordEntitiesScored adds n entities that received a fused score.
func RecordEntitiesScored(n int) {
	globalManager.entitiesScored.Add(float64(n))
}

// RecordEntityError counts a per-entity failure of the given kind.
func RecordEntityError(kind string) {
	globalManager.entityErrors.WithLabelValues(kind).Inc()
}

// RecordScorerFailure counts a scorer excluded from a batch.
func RecordScorerFailure(model, kind string) {
	globalManager.scorerFailures.WithLabelValues(model, kind).Inc()
}

// RecordScorerLatency records per-model scoring latency in milliseconds.
func RecordScorerLatency(model string, latencyMs float64) {
	globalManager.scorerLatency.WithLabelValues(model).Observe(latencyMs)
}

// RecordFusionLatency records fusion, ranking and signal latency in milliseconds.
func RecordFusionLatency(latencyMs float64) {
	globalManager.fusionLatency.Observe(latencyMs)
}

// RecordTemporalExclusions adds n historical rows dropped for temporal integrity.
func RecordTemporalExclusions(n int) {
	if n > 0 {
		globalManager.temporalExcluded.Add(float64(n))
	}
}

// RecordDegradedResult counts a result returned with a non-ok status.
func RecordDegradedResult(status string) {
	globalManager.degradedResults.WithLabelValues(status).Inc()
}

// RecordHistoryLookup counts a historical context lookup by result.
func RecordHistoryLookup(result string) {
	globalManager.historyLookups.WithLabelValues(result).Inc()
}

// UpdateModelsLoaded sets the number of models held by the registry.
func UpdateModelsLoaded(count int) {
	globalManager.modelsLoaded.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
