package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RelayMetrics holds Prometheus metrics for the outbox relay.
type RelayMetrics struct {
	Relayed  prometheus.Counter
	Failures prometheus.Counter
}

// NewRelayMetrics creates a RelayMetrics instance with outbox metrics registered.
func NewRelayMetrics() *RelayMetrics {
	return &RelayMetrics{
		Relayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_audit_outbox_relayed_total",
			Help: "Total number of outbox rows published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_audit_outbox_relay_failures_total",
			Help: "Total number of failed outbox relay passes",
		}),
	}
}

// AddRelayed records n published rows.
func (m *RelayMetrics) AddRelayed(n int) {
	m.Relayed.Add(float64(n))
}

// IncFailures increments the failed-pass counter.
func (m *RelayMetrics) IncFailures() {
	m.Failures.Inc()
}
