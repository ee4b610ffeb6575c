package gateway

import (
	"time"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// Metrics counts engine round-trips. A nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the gateway collectors and registers them with reg.
// Passing nil leaves them unregistered, which is what tests usually want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tabula",
				Subsystem: "engine",
				Name:      "calls_total",
				Help:      "Engine round-trips by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tabula",
				Subsystem: "engine",
				Name:      "call_duration_seconds",
				Help:      "Engine round-trip latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

// Calls exposes the round-trip counter.
func (m *Metrics) Calls() *prometheus.CounterVec { return m.calls }

func (m *Metrics) observe(op domain.Op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(string(op), outcome).Inc()
	m.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// observeRejected marks a call that completed but whose response signalled failure.
func (m *Metrics) observeRejected(op domain.Op) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(string(op), outcomeRejected).Inc()
}
