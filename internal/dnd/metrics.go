package dnd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for drag interactions.
type Metrics struct {
	events       *prometheus.CounterVec
	commits      *prometheus.CounterVec
	active       prometheus.Gauge
	dragDuration prometheus.Histogram
}

// MustNewMetrics registers the drag collectors on reg and panics if any of
// them is already registered.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcal",
			Subsystem: "dnd",
			Name:      "events_total",
			Help:      "Drag controller events by event name and outcome.",
		},
		[]string{"event", "outcome"},
	)
	commits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcal",
			Subsystem: "dnd",
			Name:      "commits_total",
			Help:      "Store mutations committed by drops, by target kind.",
		},
		[]string{"target"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agentcal",
			Subsystem: "dnd",
			Name:      "drags_active",
			Help:      "1 while a drag session is open.",
		},
	)
	dragDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "agentcal",
			Subsystem: "dnd",
			Name:      "drag_duration_seconds",
			Help:      "Time from beginDrag to the terminal event.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	reg.MustRegister(events, commits, active, dragDuration)
	return &Metrics{
		events:       events,
		commits:      commits,
		active:       active,
		dragDuration: dragDuration,
	}
}

func (m *Metrics) observeEvent(event string, o Outcome) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, string(o.Kind)).Inc()
	if o.Kind == OutcomeCommitted {
		m.commits.WithLabelValues(string(o.Target)).Inc()
	}
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.active.Set(1)
}

func (m *Metrics) sessionEnded(d time.Duration) {
	if m == nil {
		return
	}
	m.active.Set(0)
	m.dragDuration.Observe(d.Seconds())
}
