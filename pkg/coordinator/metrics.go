package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation kinds used as metric labels.
const (
	KindSaveOne = "save_one"
	KindSaveAll = "save_all"
	KindLoad    = "load"
)

// Metrics records save outcomes. A nil *Metrics records nothing.
type Metrics struct {
	saves    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drafts   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usergrid",
			Name:      "saves_total",
			Help:      "Save and load attempts by operation kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "usergrid",
			Name:      "save_duration_seconds",
			Help:      "Time spent waiting on the record service.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		drafts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "usergrid",
			Name:      "open_drafts",
			Help:      "Drafts currently open for editing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.saves, m.duration, m.drafts)
	}
	return m
}

func (m *Metrics) observe(kind string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(kind, string(outcome)).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) setDrafts(n int) {
	if m == nil {
		return
	}
	m.drafts.Set(float64(n))
}
