package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"runsettings/internal/settings"
)

const metricsNamespace = "runsettings"

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Metrics exposes Prometheus collectors for settings activity. A nil
// *Metrics is a valid no-op recorder.
type Metrics struct {
	dispatches     *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	sessionsActive prometheus.Gauge
	sessionsNew    prometheus.Counter
	streamsActive  prometheus.Gauge
	framesSent     *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the instance registered with the global registry.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics registers the collectors on reg. Collectors already present
// on reg are reused; any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "dispatches_total",
			Help:      "Actions applied to settings stores.",
		}, []string{"action", "tool_settings_changed"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciler",
			Name:      "runs_total",
			Help:      "Reconciler runs after a model selection, by outcome.",
		}, []string{"outcome"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Sessions currently held by the registry.",
		}),
		sessionsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created.",
		}),
		streamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "connections_active",
			Help:      "Open websocket feeds.",
		}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "frames_sent_total",
			Help:      "Frames written to websocket feeds, by type.",
		}, []string{"type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	collectors := []prometheus.Collector{
		m.dispatches, m.reconciles, m.sessionsActive, m.sessionsNew,
		m.streamsActive, m.framesSent, m.httpDuration,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			m.adopt(collector, already.ExistingCollector)
		}
	}
	return m
}

func (m *Metrics) adopt(fresh, existing prometheus.Collector) {
	switch fresh {
	case m.dispatches:
		m.dispatches = existing.(*prometheus.CounterVec)
	case m.reconciles:
		m.reconciles = existing.(*prometheus.CounterVec)
	case m.sessionsActive:
		m.sessionsActive = existing.(prometheus.Gauge)
	case m.sessionsNew:
		m.sessionsNew = existing.(prometheus.Counter)
	case m.streamsActive:
		m.streamsActive = existing.(prometheus.Gauge)
	case m.framesSent:
		m.framesSent = existing.(*prometheus.CounterVec)
	case m.httpDuration:
		m.httpDuration = existing.(*prometheus.HistogramVec)
	}
}

// ObserveDispatch implements settings.DispatchObserver.
func (m *Metrics) ObserveDispatch(kind settings.ActionKind, toolSettingsChanged bool) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.WithLabelValues(string(kind), strconv.FormatBool(toolSettingsChanged)).Inc()
}

// ObserveReconcile implements settings.ReconcileObserver.
func (m *Metrics) ObserveReconcile(outcome settings.ReconcileOutcome) {
	if m == nil || m.reconciles == nil {
		return
	}
	label := "noop"
	switch {
	case outcome.Merged && outcome.Clamped:
		label = "merged_clamped"
	case outcome.Merged:
		label = "merged"
	case outcome.Clamped:
		label = "clamped"
	}
	m.reconciles.WithLabelValues(label).Inc()
}

// SessionCreated counts a new session and records the live total.
func (m *Metrics) SessionCreated(active int) {
	if m == nil || m.sessionsNew == nil {
		return
	}
	m.sessionsNew.Inc()
	m.sessionsActive.Set(float64(active))
}

// SetActiveSessions records the live session count.
func (m *Metrics) SetActiveSessions(active int) {
	if m == nil || m.sessionsActive == nil {
		return
	}
	m.sessionsActive.Set(float64(active))
}

// StreamOpened marks a websocket feed as open.
func (m *Metrics) StreamOpened() {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Inc()
}

// StreamClosed marks a websocket feed as closed.
func (m *Metrics) StreamClosed() {
	if m == nil || m.streamsActive == nil {
		return
	}
	m.streamsActive.Dec()
}

// FrameSent counts one outbound frame.
func (m *Metrics) FrameSent(frameType string) {
	if m == nil || m.framesSent == nil {
		return
	}
	m.framesSent.WithLabelValues(frameType).Inc()
}

// ObserveHTTPRequest records one request's latency.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
