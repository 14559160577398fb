// Package metrics provides Prometheus metrics for the kartpos tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by kartpos.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	portBuckets      []float64
	registry         prometheus.Registerer

	// Live tracking
	framesProcessed  prometheus.Counter
	verdicts         *prometheus.CounterVec
	stableReadings   prometheus.Counter
	recordsPersisted prometheus.Counter
	sessions         *prometheus.CounterVec
	recordingState   prometheus.Gauge
	windowFill       prometheus.Gauge

	// Ports
	portLatency  *prometheus.HistogramVec
	portFailures *prometheus.CounterVec

	// Offline finish grid
	gridLookups     *prometheus.CounterVec
	imagesProcessed prometheus.Counter
	imagesSkipped   *prometheus.CounterVec

	// Control surface
	controlEvents       *prometheus.CounterVec
	controlDropped      prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Without WithPrometheusRegistry the
// collectors land on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kartpos",
		subsystem:        "tracker",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		portBuckets:      []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Frames read from the video source, recording or not",
	})

	m.verdicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "verdicts_total",
		Help:      "Prediction verdicts by outcome (accepted, rejected)",
	}, []string{"outcome"})

	m.stableReadings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stable_readings_total",
		Help:      "Readings recorded after the stability window agreed",
	})

	m.recordsPersisted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_persisted_total",
		Help:      "Elapsed/position records written on session stop",
	})

	m.sessions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_total",
		Help:      "Tracking session transitions (started, stopped, discarded, persist_failed)",
	}, []string{"event"})

	m.recordingState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recording",
		Help:      "1 while a tracking session is recording, 0 when idle",
	})

	m.windowFill = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stability_window_fill",
		Help:      "Number of accepted positions currently held by the stability window",
	})

	m.portLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "port_latency_milliseconds",
		Help:      "Latency of calls into external ports in milliseconds",
		Buckets:   m.portBuckets,
	}, []string{"port"})

	m.portFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "port_failures_total",
		Help:      "Failed or timed out calls into external ports",
	}, []string{"port", "reason"})

	m.gridLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "finish_grid_lookups_total",
		Help:      "Player lookups in recognized finish grids by outcome (found, not_found)",
	}, []string{"outcome"})

	m.imagesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "images_processed_total",
		Help:      "Result screenshots processed by the finish grid path",
	})

	m.imagesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "images_skipped_total",
		Help:      "Files skipped by the finish grid path by reason",
	}, []string{"reason"})

	m.controlEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "control_events_total",
		Help:      "Control events accepted by the control queue",
	}, []string{"kind"})

	m.controlDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "control_events_dropped_total",
		Help:      "Control events rejected because the queue was full or closed",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP responses with an error status by endpoint and error type",
	}, []string{"endpoint", "method", "error_type", "severity"})
}

// RecordFrameProcessed increments the processed frames counter.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordVerdict counts a verdict by outcome.
func RecordVerdict(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	globalManager.verdicts.WithLabelValues(outcome).Inc()
}

// RecordStableReading increments the stable readings counter.
func RecordStableReading() {
	globalManager.stableReadings.Inc()
}

// RecordRecordsPersisted adds n to the persisted records counter.
func RecordRecordsPersisted(n int) {
	globalManager.recordsPersisted.Add(float64(n))
}

// RecordSessionEvent counts a session transition.
func RecordSessionEvent(event string) {
	globalManager.sessions.WithLabelValues(event).Inc()
}

// UpdateRecording sets the recording state gauge.
func UpdateRecording(recording bool) {
	if recording {
		globalManager.recordingState.Set(1)
		return
	}
	globalManager.recordingState.Set(0)
}

// UpdateWindowFill sets the stability window fill gauge.
func UpdateWindowFill(n int) {
	globalManager.windowFill.Set(float64(n))
}

// RecordPortLatency observes a port call latency in milliseconds.
func RecordPortLatency(port string, latencyMs float64) {
	globalManager.portLatency.WithLabelValues(port).Observe(latencyMs)
}

// RecordPortFailure counts a failed port call.
func RecordPortFailure(port, reason string) {
	globalManager.portFailures.WithLabelValues(port, reason).Inc()
}

// RecordGridLookup counts a finish grid player lookup.
func RecordGridLookup(found bool) {
	outcome := "not_found"
	if found {
		outcome = "found"
	}
	globalManager.gridLookups.WithLabelValues(outcome).Inc()
}

// RecordImageProcessed increments the processed screenshots counter.
func RecordImageProcessed() {
	globalManager.imagesProcessed.Inc()
}

// RecordImageSkipped counts a skipped file by reason.
func RecordImageSkipped(reason string) {
	globalManager.imagesSkipped.WithLabelValues(reason).Inc()
}

// RecordControlEvent counts an accepted control event.
func RecordControlEvent(kind string) {
	globalManager.controlEvents.WithLabelValues(kind).Inc()
}

// RecordControlDropped counts a rejected control event.
func RecordControlDropped() {
	globalManager.controlDropped.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
