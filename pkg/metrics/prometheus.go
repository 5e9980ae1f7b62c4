// Package metrics provides Prometheus metrics for the clickerd scoring service.
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

// Manager manages all Prometheus metrics for the clickerd service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics - the scoring pipeline
	notificationsDecoded prometheus.Counter
	decodeErrors         prometheus.Counter
	fusionUpdates        prometheus.Counter
	resetsIssued         prometheus.Counter
	resultsSaved         prometheus.Counter

	// Link Health Metrics - per-device wireless sessions
	sessionsConnected prometheus.Gauge
	reconnectAttempts prometheus.Counter
	heartbeatFailures prometheus.Counter
	linkFailures      *prometheus.CounterVec

	// Event Log Metrics - append pipeline
	logAppends         prometheus.Counter
	logAppendErrors    prometheus.Counter
	appendQueueSize    prometheus.Gauge
	appendQueueCap     prometheus.Gauge
	appendLatency      prometheus.Histogram
	appendQueueDropped prometheus.Counter

	// Hub Metrics - listener fan-out
	hubPublished prometheus.Counter
	hubDropped   prometheus.Counter
	hubListeners prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "clickerd",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Core Business Metrics - the scoring pipeline
	m.notificationsDecoded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_decoded_total",
		Help:      "Total number of device notifications decoded successfully",
	})

	m.decodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decode_errors_total",
		Help:      "Total number of malformed notification payloads dropped",
	})

	m.fusionUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fusion_updates_total",
		Help:      "Total number of fused score recomputations",
	})

	m.resetsIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resets_issued_total",
		Help:      "Total number of device reset commands issued",
	})

	m.resultsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_saved_total",
		Help:      "Total number of final results appended",
	})

	// Link Health Metrics - per-device wireless sessions
	m.sessionsConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_connected",
		Help:      "Number of device sessions currently in the connected state",
	})

	m.reconnectAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconnect_attempts_total",
		Help:      "Total number of automatic reconnect attempts",
	})

	m.heartbeatFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "heartbeat_failures_total",
		Help:      "Total number of heartbeat probe failures (dead link detections)",
	})

	m.linkFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "link_failures_total",
			Help:      "Total number of link failures by stage",
		},
		[]string{"stage"},
	)

	// Event Log Metrics - append pipeline
	m.logAppends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "log_appends_total",
		Help:      "Total number of event log records appended",
	})

	m.logAppendErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "log_append_errors_total",
		Help:      "Total number of event log append failures",
	})

	m.appendQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "append_queue_size",
		Help:      "Current size of the log append queue (backlog indicator)",
	})

	m.appendQueueCap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "append_queue_capacity",
		Help:      "Maximum log append queue capacity",
	})

	m.appendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "append_latency_milliseconds",
		Help:      "Histogram of event log append latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.appendQueueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "append_queue_dropped_total",
		Help:      "Total number of log records dropped due to append queue backpressure",
	})

	// Hub Metrics - listener fan-out
	m.hubPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hub_published_total",
		Help:      "Total number of messages published to the broadcast hub",
	})

	m.hubDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hub_dropped_total",
		Help:      "Total number of messages dropped for slow or failed listeners",
	})

	m.hubListeners = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hub_listeners",
		Help:      "Number of listeners currently registered on the broadcast hub",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics - detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordNotificationDecoded increments the decoded notifications counter.
func RecordNotificationDecoded() {
	globalManager.notificationsDecoded.Inc()
}

// RecordDecodeError increments the decode errors counter.
func RecordDecodeError() {
	globalManager.decodeErrors.Inc()
}

// RecordFusionUpdate increments the fusion updates counter.
func RecordFusionUpdate() {
	globalManager.fusionUpdates.Inc()
}

// RecordResetIssued increments the resets issued counter.
func RecordResetIssued() {
	globalManager.resetsIssued.Inc()
}

// RecordResultSaved increments the results saved counter.
func RecordResultSaved() {
	globalManager.resultsSaved.Inc()
}

// UpdateSessionsConnected sets the connected sessions gauge.
func UpdateSessionsConnected(count int) {
	globalManager.sessionsConnected.Set(float64(count))
}

// IncSessionsConnected increments the connected sessions gauge.
func IncSessionsConnected() {
	globalManager.sessionsConnected.Inc()
}

// DecSessionsConnected decrements the connected sessions gauge.
func DecSessionsConnected() {
	globalManager.sessionsConnected.Dec()
}

// RecordReconnectAttempt increments the reconnect attempts counter.
func RecordReconnectAttempt() {
	globalManager.reconnectAttempts.Inc()
}

// RecordHeartbeatFailure increments the heartbeat failures counter.
func RecordHeartbeatFailure() {
	globalManager.heartbeatFailures.Inc()
}

// RecordLinkFailure increments the link failures counter for a stage
// (connect, subscribe, write, read).
func RecordLinkFailure(stage string) {
	globalManager.linkFailures.WithLabelValues(stage).Inc()
}

// RecordLogAppend increments the log appends counter.
func RecordLogAppend() {
	globalManager.logAppends.Inc()
}

// RecordLogAppendError increments the log append errors counter.
func RecordLogAppendError() {
	globalManager.logAppendErrors.Inc()
}

// UpdateAppendQueueSize sets the append queue size gauge.
func UpdateAppendQueueSize(size int) {
	globalManager.appendQueueSize.Set(float64(size))
}

// UpdateAppendQueueCapacity sets the append queue capacity gauge.
func UpdateAppendQueueCapacity(capacity int) {
	globalManager.appendQueueCap.Set(float64(capacity))
}

// RecordAppendLatency observes one event log append duration.
func RecordAppendLatency(latencyMs float64) {
	globalManager.appendLatency.Observe(latencyMs)
}

// RecordAppendQueueDrop increments the append queue drop counter.
func RecordAppendQueueDrop() {
	globalManager.appendQueueDropped.Inc()
}

// RecordHubPublish increments the hub published counter.
func RecordHubPublish() {
	globalManager.hubPublished.Inc()
}

// RecordHubDrop increments the hub dropped counter.
func RecordHubDrop() {
	globalManager.hubDropped.Inc()
}

// UpdateHubListeners sets the hub listeners gauge.
func UpdateHubListeners(count int) {
	globalManager.hubListeners.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent increments the component error counter.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType increments the typed error counter.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint increments the endpoint error counter.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency observes the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes a GC pause duration.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used for all metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
