package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal        *prometheus.CounterVec
	ViolationsTotal    *prometheus.CounterVec
	CorrectionsTotal   prometheus.Counter
	BypassesTotal      prometheus.Counter
	BypassDenialsTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_isolation_checks_total",
			Help: "Total isolation checks by target context and outcome",
		}, []string{"context", "outcome"}),
		ViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_isolation_violations_total",
			Help: "Total segregation violations found, by severity",
		}, []string{"severity"}),
		CorrectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_isolation_corrections_total",
			Help: "Total fields stripped by the correction pass",
		}),
		BypassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_isolation_bypasses_total",
			Help: "Total emergency bypasses granted",
		}),
		BypassDenialsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_isolation_bypass_denials_total",
			Help: "Total emergency bypass requests denied by tier policy",
		}),
	}
}

func (m *Metrics) IncrementChecks(context, outcome string) {
	m.ChecksTotal.WithLabelValues(context, outcome).Inc()
}

func (m *Metrics) IncrementViolations(severity string) {
	m.ViolationsTotal.WithLabelValues(severity).Inc()
}

func (m *Metrics) AddCorrections(count int) {
	m.CorrectionsTotal.Add(float64(count))
}

func (m *Metrics) IncrementBypasses() {
	m.BypassesTotal.Inc()
}

func (m *Metrics) IncrementBypassDenials() {
	m.BypassDenialsTotal.Inc()
}
