// Package metrics exposes Prometheus metrics for the mudra tutor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the tutor's metrics. All recording methods are safe on a
// nil *Manager so callers can run without metrics.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	enabled        bool
	registry       *prometheus.Registry

	framesProcessed  prometheus.Counter
	outcomes         *prometheus.CounterVec
	completions      *prometheus.CounterVec
	streak           prometheus.Gauge
	score            prometheus.Gauge
	detectorLatency  prometheus.Histogram
	detectorErrors   prometheus.Counter
	batchesDropped   prometheus.Counter
	cameraErrors     prometheus.Counter
	httpRequests     *prometheus.CounterVec
	websocketClients prometheus.Gauge
	hookRuns         *prometheus.CounterVec
}

// NewManager creates a Manager with its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "mudra",
		subsystem:      "tutor",
		latencyBuckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		enabled:        true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector())
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Detection batches reconciled by the game engine",
	})
	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "outcomes_total",
		Help:      "Reconciliation outcomes by kind",
	}, []string{"kind"})
	m.completions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "signs_completed_total",
		Help:      "Completed signs by name",
	}, []string{"sign"})
	m.streak = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streak",
		Help:      "Current detection streak",
	})
	m.score = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score",
		Help:      "Signs completed in the current session",
	})
	m.detectorLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "detector",
		Name:      "latency_seconds",
		Help:      "Time spent in the detector per frame",
		Buckets:   m.latencyBuckets,
	})
	m.detectorErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "detector",
		Name:      "errors_total",
		Help:      "Detector invocations that failed",
	})
	m.batchesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_dropped_total",
		Help:      "Detection batches dropped because the engine queue was full",
	})
	m.cameraErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Camera open or read failures",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})
	m.websocketClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "websocket_clients",
		Help:      "Connected outcome event subscribers",
	})
	m.hookRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "hook",
		Name:      "runs_total",
		Help:      "Completion hook executions by hook and status",
	}, []string{"hook", "status"})
}

func (m *Manager) on() bool { return m != nil && m.enabled }

// RecordFrame counts one reconciled batch.
func (m *Manager) RecordFrame() {
	if m.on() {
		m.framesProcessed.Inc()
	}
}

// RecordOutcome counts an outcome by its kind label.
func (m *Manager) RecordOutcome(kind string) error {
	if kind == "" {
		return ErrUnknownOutcome
	}
	if m.on() {
		m.outcomes.WithLabelValues(kind).Inc()
	}
	return nil
}

// RecordCompletion counts a completed sign.
func (m *Manager) RecordCompletion(sign string) {
	if m.on() {
		m.completions.WithLabelValues(sign).Inc()
	}
}

// SetProgress publishes the current streak and score.
func (m *Manager) SetProgress(streak, score int) {
	if m.on() {
		m.streak.Set(float64(streak))
		m.score.Set(float64(score))
	}
}

// ObserveDetector records one detector call.
func (m *Manager) ObserveDetector(d time.Duration, err error) {
	if !m.on() {
		return
	}
	m.detectorLatency.Observe(d.Seconds())
	if err != nil {
		m.detectorErrors.Inc()
	}
}

// RecordDroppedBatch counts a batch the consumer could not accept.
func (m *Manager) RecordDroppedBatch() {
	if m.on() {
		m.batchesDropped.Inc()
	}
}

// RecordCameraError counts a capture failure.
func (m *Manager) RecordCameraError() {
	if m.on() {
		m.cameraErrors.Inc()
	}
}

// RecordHTTPRequest counts a served request.
func (m *Manager) RecordHTTPRequest(route, method, code string) {
	if m.on() {
		m.httpRequests.WithLabelValues(route, method, code).Inc()
	}
}

// AddWebsocketClients adjusts the subscriber gauge by delta.
func (m *Manager) AddWebsocketClients(delta int) {
	if m.on() {
		m.websocketClients.Add(float64(delta))
	}
}

// RecordHookRun counts a hook execution; status is "ok", "error" or "timeout".
func (m *Manager) RecordHookRun(hook, status string) {
	if m.on() {
		m.hookRuns.WithLabelValues(hook, status).Inc()
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
