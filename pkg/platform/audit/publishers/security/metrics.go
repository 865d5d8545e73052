package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security audit buffering.
type Metrics struct {
	Enqueued        prometheus.Counter
	Persisted       prometheus.Counter
	PersistFailures prometheus.Counter
	BufferLen       prometheus.Gauge
	Dropped         prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with security audit metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_audit_security_enqueued_total",
			Help: "Total number of security audit events enqueued",
		}),
		Persisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_audit_security_persisted_total",
			Help: "Total number of security audit events persisted",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_audit_security_persist_failures_total",
			Help: "Total number of security audit flush failures",
		}),
		BufferLen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "haven_audit_security_buffer_len",
			Help: "Current number of security audit events waiting in the ring buffer",
		}),
		Dropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "haven_audit_security_dropped_total",
			Help: "Total number of security audit events dropped by the ring buffer",
		}),
	}
}

// IncEnqueued increments the enqueued counter.
func (m *Metrics) IncEnqueued() {
	m.Enqueued.Inc()
}

// IncPersisted increments the persisted counter.
func (m *Metrics) IncPersisted() {
	m.Persisted.Inc()
}

// IncPersistFailures increments the persist failure counter.
func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

// SetBufferLen records the current buffer occupancy.
func (m *Metrics) SetBufferLen(n int) {
	m.BufferLen.Set(float64(n))
}

// SetDropped records the cumulative dropped count.
func (m *Metrics) SetDropped(n int64) {
	m.Dropped.Set(float64(n))
}
