package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded by Metrics.
const (
	OutcomeOK        = "ok"
	OutcomeNetwork   = "network"
	OutcomeBackend   = "backend"
	OutcomeMalformed = "malformed"
	OutcomeAuth      = "auth"
)

// Metrics counts backend calls by endpoint and outcome.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "examquest",
				Name:      "backend_calls_total",
				Help:      "Total number of backend calls",
			},
			[]string{"endpoint", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "examquest",
				Name:      "backend_call_duration_seconds",
				Help:      "Duration of backend calls",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Duration)
	}
	return m
}

func (m *Metrics) observe(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(endpoint, outcome).Inc()
	m.Duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
