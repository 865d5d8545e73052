package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal       *prometheus.CounterVec
	ValidationFailures     prometheus.Counter
	CrisisDetectionsTotal  *prometheus.CounterVec
	CrisisEscalationErrors prometheus.Counter
	HistoryReadsTotal      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_assessment_submissions_total",
			Help: "Total accepted assessment submissions by instrument",
		}, []string{"instrument"}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_assessment_validation_failures_total",
			Help: "Total submissions rejected by answer validation",
		}),
		CrisisDetectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_assessment_crisis_detections_total",
			Help: "Total crisis signals by triggering rule",
		}, []string{"reason"}),
		CrisisEscalationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_assessment_crisis_escalation_errors_total",
			Help: "Total crisis intervention paths that reported an error",
		}),
		HistoryReadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_assessment_history_reads_total",
			Help: "Total history listings served",
		}),
	}
}

func (m *Metrics) IncrementSubmissions(instrument string) {
	m.SubmissionsTotal.WithLabelValues(instrument).Inc()
}

func (m *Metrics) IncrementValidationFailures() {
	m.ValidationFailures.Inc()
}

func (m *Metrics) IncrementCrisisDetections(reason string) {
	m.CrisisDetectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementCrisisEscalationErrors() {
	m.CrisisEscalationErrors.Inc()
}

func (m *Metrics) IncrementHistoryReads() {
	m.HistoryReadsTotal.Inc()
}
