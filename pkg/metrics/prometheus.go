// Package metrics provides Prometheus metrics for the tasting aggregation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Report lifecycle
	reportsSubmitted prometheus.Counter
	reportsReplaced  prometheus.Counter
	reportsDeleted   prometheus.Counter
	reportsDuplicate prometheus.Counter

	// Aggregation
	recomputeLatency prometheus.Histogram
	recomputeErrors  prometheus.Counter

	// Leaderboards
	leaderboardBuildLatency *prometheus.HistogramVec
	leaderboardErrors       *prometheus.CounterVec
	totalItems              prometheus.Gauge
	totalReports            prometheus.Gauge
	totalParticipants       prometheus.Gauge

	// Label inference
	labelInferences *prometheus.CounterVec

	// Store
	storeOpLatency *prometheus.HistogramVec
	storeOpErrors  *prometheus.CounterVec

	// Reconcile queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Reconcile workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by dimension
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tasting",
		subsystem:        "aggregator",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.reportsSubmitted = m.counter("reports_submitted_total", "Total number of tasting reports submitted")
	m.reportsReplaced = m.counter("reports_replaced_total", "Total number of tasting reports replaced by an edit")
	m.reportsDeleted = m.counter("reports_deleted_total", "Total number of tasting reports deleted")
	m.reportsDuplicate = m.counter("reports_duplicate_total", "Total number of report submissions rejected as duplicates")

	m.recomputeLatency = m.histogram("recompute_latency_milliseconds",
		"Latency of one item aggregate recompute in milliseconds", m.histogramBuckets)
	m.recomputeErrors = m.counter("recompute_errors_total", "Total number of failed aggregate recomputes")

	m.leaderboardBuildLatency = m.histogramVec("leaderboard_build_latency_milliseconds",
		"Latency of building a leaderboard from all reports in milliseconds", "board")
	m.leaderboardErrors = m.counterVec("leaderboard_errors_total", "Total number of failed leaderboard builds", "board")
	m.totalItems = m.gauge("items_total", "Number of items in the catalog")
	m.totalReports = m.gauge("reports_total", "Number of reports seen by the last leaderboard build")
	m.totalParticipants = m.gauge("participants_total", "Number of distinct participants seen by the last leaderboard build")

	m.labelInferences = m.counterVec("label_inferences_total", "Label category inferences by outcome", "outcome")

	m.storeOpLatency = m.histogramVec("store_operation_latency_milliseconds",
		"Document store operation latency in milliseconds", "backend", "op")
	m.storeOpErrors = m.counterVec("store_operation_errors_total",
		"Document store operation failures", "backend", "op")

	m.queueSize = m.gauge("reconcile_queue_size", "Current number of pending reconcile jobs")
	m.queueCapacity = m.gauge("reconcile_queue_capacity", "Maximum reconcile queue capacity")
	m.queueUtilization = m.gauge("reconcile_queue_utilization_ratio", "Reconcile queue utilization (size / capacity)")
	m.queueEnqueued = m.counter("reconcile_queue_enqueue_total", "Total number of reconcile jobs enqueued")
	m.queueDequeued = m.counter("reconcile_queue_dequeue_total", "Total number of reconcile jobs dequeued")
	m.queueEnqueueErrors = m.counter("reconcile_queue_enqueue_errors_total", "Total number of rejected reconcile jobs")
	m.queueProcessingLatency = m.histogram("reconcile_queue_wait_milliseconds",
		"Time a reconcile job spent in the queue in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("reconcile_worker_count", "Configured number of reconcile workers")
	m.workerActiveCount = m.gauge("reconcile_worker_active_count", "Number of running reconcile workers")
	m.workerIdleCount = m.gauge("reconcile_worker_idle_count", "Number of idle reconcile workers")
	m.workerProcessingLatency = m.histogram("reconcile_worker_latency_milliseconds",
		"Reconcile job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("reconcile_worker_errors_total", "Total number of failed reconcile jobs")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Report lifecycle.

// RecordReportSubmitted increments the submitted reports counter.
func RecordReportSubmitted() { globalManager.reportsSubmitted.Inc() }

// RecordReportReplaced increments the replaced reports counter.
func RecordReportReplaced() { globalManager.reportsReplaced.Inc() }

// RecordReportDeleted increments the deleted reports counter.
func RecordReportDeleted() { globalManager.reportsDeleted.Inc() }

// RecordReportDuplicate increments the duplicate submissions counter.
func RecordReportDuplicate() { globalManager.reportsDuplicate.Inc() }

// Aggregation.

// RecordRecomputeLatency records the latency of one aggregate recompute.
func RecordRecomputeLatency(latencyMs float64) { globalManager.recomputeLatency.Observe(latencyMs) }

// RecordRecomputeError increments the failed recompute counter.
func RecordRecomputeError() { globalManager.recomputeErrors.Inc() }

// Leaderboards.

// RecordLeaderboardBuild records how long building the named board took.
func RecordLeaderboardBuild(board string, latencyMs float64) {
	globalManager.leaderboardBuildLatency.WithLabelValues(board).Observe(latencyMs)
}

// RecordLeaderboardError increments the failure counter of the named board.
func RecordLeaderboardError(board string) {
	globalManager.leaderboardErrors.WithLabelValues(board).Inc()
}

// UpdateTotalItems sets the catalog size gauge.
func UpdateTotalItems(count int) { globalManager.totalItems.Set(float64(count)) }

// UpdateTotalReports sets the report count gauge.
func UpdateTotalReports(count int) { globalManager.totalReports.Set(float64(count)) }

// UpdateTotalParticipants sets the distinct participant gauge.
func UpdateTotalParticipants(count int) { globalManager.totalParticipants.Set(float64(count)) }

// RecordLabelInference counts one label inference; matched reports whether a category was found.
func RecordLabelInference(matched bool) {
	outcome := "unmatched"
	if matched {
		outcome = "matched"
	}
	globalManager.labelInferences.WithLabelValues(outcome).Inc()
}

// Store.

// RecordStoreOperation records the latency of a store operation.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	globalManager.storeOpLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError increments the failure counter of a store operation.
func RecordStoreError(backend, op string) {
	globalManager.storeOpErrors.WithLabelValues(backend, op).Inc()
}

// Reconcile queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records how long a job waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Reconcile workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) { globalManager.workerIdleCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records reconcile job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
