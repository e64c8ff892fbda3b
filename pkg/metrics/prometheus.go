// Package metrics provides Prometheus metrics for the skating scoring service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Submissions
	submissions         *prometheus.CounterVec
	submissionsDup      prometheus.Counter
	submissionsRejected *prometheus.CounterVec

	// Aggregation
	aggregations       *prometheus.CounterVec
	aggregationLatency *prometheus.HistogramVec
	resultsStale       prometheus.Counter
	roundsClosed       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// Repository
	repositoryShardCount     prometheus.Gauge
	repositoryRoundsTotal    prometheus.Gauge
	repositoryRoundsPerShard *prometheus.GaugeVec
	repositoryWriteLatency   prometheus.Histogram
	repositoryReadLatency    prometheus.Histogram

	// Queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter
	queueWaitLatency  prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skating",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(m.counterOpts("submissions_total",
		"Accepted judge submissions by kind (ranking, selection, scores)"), []string{"kind"})
	m.submissionsDup = auto.NewCounter(m.counterOpts("submissions_duplicate_total",
		"Retried submissions acknowledged without being applied"))
	m.submissionsRejected = auto.NewCounterVec(m.counterOpts("submissions_rejected_total",
		"Submissions rejected by validation or round state"), []string{"reason"})

	m.aggregations = auto.NewCounterVec(m.counterOpts("aggregations_total",
		"Round results computed by round kind and outcome"), []string{"round_kind", "outcome"})
	m.aggregationLatency = auto.NewHistogramVec(m.histogramOpts("aggregation_latency_milliseconds",
		"Time spent computing a round result in milliseconds"), []string{"round_kind"})
	m.resultsStale = auto.NewCounter(m.counterOpts("results_stale_total",
		"Computed results dropped because a newer revision was already stored"))
	m.roundsClosed = auto.NewCounter(m.counterOpts("rounds_closed_total",
		"Rounds closed with a crystallized result"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.httpRateLimited = auto.NewCounter(m.counterOpts("http_rate_limited_total",
		"Submissions refused by the rate limiter"))

	m.repositoryShardCount = auto.NewGauge(m.gaugeOpts("repository_shard_count",
		"Number of repository shards"))
	m.repositoryRoundsTotal = auto.NewGauge(m.gaugeOpts("repository_rounds_total",
		"Number of rounds held in the repository"))
	m.repositoryRoundsPerShard = auto.NewGaugeVec(m.gaugeOpts("repository_rounds_per_shard",
		"Number of rounds per repository shard"), []string{"shard_id"})
	m.repositoryWriteLatency = auto.NewHistogram(m.histogramOpts("repository_write_latency_milliseconds",
		"Repository write latency in milliseconds"))
	m.repositoryReadLatency = auto.NewHistogram(m.histogramOpts("repository_read_latency_milliseconds",
		"Repository snapshot and read latency in milliseconds"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size",
		"Pending recompute requests"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity",
		"Capacity of the recompute queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio",
		"Fill ratio of the recompute queue (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total",
		"Recompute requests enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total",
		"Recompute requests dequeued"))
	m.queueEnqueueError = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Recompute requests refused because the queue was full or closed"))
	m.queueWaitLatency = auto.NewHistogram(m.histogramOpts("queue_wait_milliseconds",
		"Time a recompute request waited in the queue in milliseconds"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count",
		"Number of recompute workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count",
		"Workers currently computing a result"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"End-to-end time a worker spends on one recompute request in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total",
		"Recompute requests that failed"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// RecordSubmission counts an accepted submission of the given kind.
func RecordSubmission(kind string) {
	globalManager.submissions.WithLabelValues(kind).Inc()
}

// RecordSubmissionDuplicate counts a retried submission.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDup.Inc()
}

// RecordSubmissionRejected counts a refused submission.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordAggregation records one result computation.
func RecordAggregation(roundKind, outcome string, latencyMs float64) {
	globalManager.aggregations.WithLabelValues(roundKind, outcome).Inc()
	globalManager.aggregationLatency.WithLabelValues(roundKind).Observe(latencyMs)
}

// RecordStaleResult counts a computed result that lost to a newer revision.
func RecordStaleResult() {
	globalManager.resultsStale.Inc()
}

// RecordRoundClosed counts a crystallized round.
func RecordRoundClosed() {
	globalManager.roundsClosed.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request refused by the limiter.
func RecordRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// Repository Metrics Functions.

// UpdateRepositoryShardCount sets the total number of repository shards.
func UpdateRepositoryShardCount(count int) {
	globalManager.repositoryShardCount.Set(float64(count))
}

// UpdateRepositoryRoundsTotal sets the number of stored rounds.
func UpdateRepositoryRoundsTotal(count int) {
	globalManager.repositoryRoundsTotal.Set(float64(count))
}

// UpdateRepositoryRoundsPerShard sets the number of rounds in one shard.
func UpdateRepositoryRoundsPerShard(shardID string, count int) {
	globalManager.repositoryRoundsPerShard.WithLabelValues(shardID).Set(float64(count))
}

// RecordRepositoryWriteLatency records a write latency in milliseconds.
func RecordRepositoryWriteLatency(latencyMs float64) {
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// RecordRepositoryReadLatency records a read latency in milliseconds.
func RecordRepositoryReadLatency(latencyMs float64) {
	globalManager.repositoryReadLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued request.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued request.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueError.Inc()
}

// RecordQueueWaitLatency records how long a request waited in the queue.
func RecordQueueWaitLatency(latencyMs float64) {
	globalManager.queueWaitLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed recompute.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

var runtimeOnce sync.Once

// RegisterRuntimeCollectors adds the Go runtime and process collectors to the
// custom registry. Later calls do nothing.
func RegisterRuntimeCollectors() {
	runtimeOnce.Do(func() {
		customRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
