package model

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics reports dispatches and evaluation passes to prometheus. a nil
// *Metrics is valid and records nothing.
type Metrics struct {
	commands    *prometheus.CounterVec
	evaluations prometheus.Histogram
	pending     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sheet_commands_total",
			Help: "Total number of dispatched commands",
		}, []string{"type", "status"}),
		evaluations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sheet_evaluation_duration_seconds",
			Help:    "Duration of evaluation passes",
			Buckets: prometheus.DefBuckets,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sheet_async_pending",
			Help: "Number of async function calls in flight",
		}),
	}
	reg.MustRegister(m.commands, m.evaluations, m.pending)
	return m
}

func (m *Metrics) observeCommand(t CommandType, status Status) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(string(t), string(status)).Inc()
}

func (m *Metrics) observeEvaluation(d time.Duration, pending int) {
	if m == nil {
		return
	}
	m.evaluations.Observe(d.Seconds())
	m.pending.Set(float64(pending))
}

func (m *Metrics) observePending(pending int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
}
