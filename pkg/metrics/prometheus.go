// Package metrics provides Prometheus metrics for the geobridge webhook service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the geobridge service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Webhook ingestion metrics
	webhookRequests      *prometheus.CounterVec
	webhookDuration      *prometheus.HistogramVec
	authFailures         prometheus.Counter
	unrecognizedPayloads prometheus.Counter

	// Projection metrics
	projectionLatency prometheus.Histogram
	storeWrites       prometheus.Counter
	storeSuppressed   prometheus.Counter
	storeErrors       prometheus.Counter
	nodesCreated      prometheus.Counter

	// Presence aggregation metrics
	presenceRecomputes prometheus.Counter
	presenceIgnored    prometheus.Counter
	presenceLatency    prometheus.Histogram

	// Change queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Relay metrics
	relayAttempts prometheus.Counter
	relayFailures prometheus.Counter
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
		namespace:        "geobridge",
		subsystem:        "webhook",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.webhookRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "requests_total",
			Help:      "Total number of webhook requests by source app and status code",
		},
		[]string{"app", "status_code"},
	)

	m.webhookDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "request_duration_milliseconds",
			Help:      "Webhook request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"app", "status_code"},
	)

	m.authFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "auth_failures_total",
		Help:      "Total number of rejected credentials (header or URL based)",
	})

	m.unrecognizedPayloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unrecognized_payloads_total",
		Help:      "Total number of requests with an unknown user-agent/content-type pair",
	})

	m.projectionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "projector",
		Name:      "projection_latency_milliseconds",
		Help:      "End-to-end state projection latency per event in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Total number of state values actually written",
	})

	m.storeSuppressed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "writes_suppressed_total",
		Help:      "Total number of writes suppressed because the value was unchanged",
	})

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Total number of failed store operations",
	})

	m.nodesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "nodes_created_total",
		Help:      "Total number of hierarchy nodes lazily materialized",
	})

	m.presenceRecomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "presence",
		Name:      "recomputes_total",
		Help:      "Total number of place aggregate recomputations",
	})

	m.presenceIgnored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "presence",
		Name:      "ignored_total",
		Help:      "Total number of presence changes ignored (non-primary device)",
	})

	m.presenceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "presence",
		Name:      "recompute_latency_milliseconds",
		Help:      "Aggregate recomputation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "size",
		Help:      "Current size of the state-change queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "capacity",
		Help:      "Maximum capacity of the state-change queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "utilization_ratio",
		Help:      "Queue utilization ratio (size / capacity)",
	})

	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueues_total",
		Help:      "Total number of state changes enqueued",
	})

	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "dequeues_total",
		Help:      "Total number of state changes dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "queue",
		Name:      "enqueue_errors_total",
		Help:      "Total number of dropped state changes (queue full or closed)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "count",
		Help:      "Current number of aggregation workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "processing_latency_milliseconds",
		Help:      "Worker processing latency per state change in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "worker",
		Name:      "errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.relayAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "relay",
		Name:      "attempts_total",
		Help:      "Total number of relay forward attempts",
	})

	m.relayFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "relay",
		Name:      "failures_total",
		Help:      "Total number of failed relay forwards (logged and swallowed)",
	})
}

// RecordWebhookRequest records a webhook request with its source app and status.
func RecordWebhookRequest(app, statusCode string) {
	globalManager.webhookRequests.WithLabelValues(app, statusCode).Inc()
}

// RecordWebhookDuration records webhook request duration.
func RecordWebhookDuration(app, statusCode string, durationMs float64) {
	globalManager.webhookDuration.WithLabelValues(app, statusCode).Observe(durationMs)
}

// RecordAuthFailure increments the rejected-credentials counter.
func RecordAuthFailure() {
	globalManager.authFailures.Inc()
}

// RecordUnrecognizedPayload increments the unknown payload counter.
func RecordUnrecognizedPayload() {
	globalManager.unrecognizedPayloads.Inc()
}

// RecordProjectionLatency records per-event projection latency in milliseconds.
func RecordProjectionLatency(latencyMs float64) {
	globalManager.projectionLatency.Observe(latencyMs)
}

// RecordStoreWrite increments the performed-writes counter.
func RecordStoreWrite() {
	globalManager.storeWrites.Inc()
}

// RecordStoreSuppressed increments the suppressed-writes counter.
func RecordStoreSuppressed() {
	globalManager.storeSuppressed.Inc()
}

// RecordStoreError increments the store error counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordNodeCreated increments the materialized-nodes counter.
func RecordNodeCreated() {
	globalManager.nodesCreated.Inc()
}

// RecordPresenceRecompute increments the aggregate recomputation counter.
func RecordPresenceRecompute() {
	globalManager.presenceRecomputes.Inc()
}

// RecordPresenceIgnored increments the non-primary-device counter.
func RecordPresenceIgnored() {
	globalManager.presenceIgnored.Inc()
}

// RecordPresenceLatency records aggregate recomputation latency.
func RecordPresenceLatency(latencyMs float64) {
	globalManager.presenceLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the dropped state-change counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordRelayAttempt increments the relay attempt counter.
func RecordRelayAttempt() {
	globalManager.relayAttempts.Inc()
}

// RecordRelayFailure increments the relay failure counter.
func RecordRelayFailure() {
	globalManager.relayFailures.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
