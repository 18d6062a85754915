// Package metrics holds the Prometheus collectors for runs, sessions and
// forwarded events. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamd"

type Metrics struct {
	activeSessions  prometheus.Gauge
	runsStarted     prometheus.Counter
	runsFinished    *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	eventsForwarded *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of connected client sessions.",
		}),
		runsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Pipeline runs accepted by the session registry.",
		}),
		runsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Pipeline runs by outcome as seen by the client stream.",
		}, []string{"outcome"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_rejections_total",
			Help:      "Chat messages rejected before a run started.",
		}, []string{"reason"}),
		eventsForwarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_forwarded_total",
			Help:      "External events delivered to client connections.",
		}, []string{"event"}),
		eventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Internal events discarded after their session went away.",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent inside each pipeline stage.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage", "status"}),
	}
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) EventForwarded(event string) {
	if m == nil {
		return
	}
	m.eventsForwarded.WithLabelValues(event).Inc()
}

func (m *Metrics) EventsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsDropped.Add(float64(n))
}

// ObserveStage records how long a stage took; status is "ok" or "error".
func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}
