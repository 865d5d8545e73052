package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Duration          *prometheus.HistogramVec
	MissesTotal       *prometheus.CounterVec
	FallbacksTotal    *prometheus.CounterVec
	SafeDefaultsTotal *prometheus.CounterVec
	EscalationsTotal  prometheus.Counter
	CrisisMissStreak  prometheus.Gauge
	GlobalMissStreak  prometheus.Gauge
	HistoryDrops      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "haven_sla_duration_seconds",
			Help: "Wall-clock duration of enforced operations by tier",
			// Buckets bracket the tier budgets: 50ms, 100ms, 200ms.
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.15, 0.2, 0.3, 0.5, 1},
		}, []string{"tier"}),
		MissesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_sla_misses_total",
			Help: "Total enforced operations that missed their tier deadline",
		}, []string{"tier"}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_sla_fallbacks_total",
			Help: "Total enforced operations that used the fallback path",
		}, []string{"tier"}),
		SafeDefaultsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haven_sla_safe_defaults_total",
			Help: "Total enforced operations degraded all the way to the typed safe default",
		}, []string{"tier"}),
		EscalationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_sla_crisis_escalations_total",
			Help: "Total reportable crisis degradations (consecutive miss threshold crossed)",
		}),
		CrisisMissStreak: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "haven_sla_crisis_consecutive_misses",
			Help: "Current consecutive crisis-tier deadline misses on this instance",
		}),
		GlobalMissStreak: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "haven_sla_crisis_global_consecutive_misses",
			Help: "Consecutive crisis-tier misses across instances, when a shared streak store is configured",
		}),
		HistoryDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haven_sla_history_drops_total",
			Help: "History appends dropped to keep crisis callers off contended locks",
		}),
	}
}

func (m *Metrics) ObserveDuration(tier string, seconds float64) {
	m.Duration.WithLabelValues(tier).Observe(seconds)
}

func (m *Metrics) IncrementMisses(tier string) {
	m.MissesTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementFallbacks(tier string) {
	m.FallbacksTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementSafeDefaults(tier string) {
	m.SafeDefaultsTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncrementEscalations() {
	m.EscalationsTotal.Inc()
}

func (m *Metrics) SetCrisisMissStreak(n int64) {
	m.CrisisMissStreak.Set(float64(n))
}

func (m *Metrics) SetGlobalMissStreak(n int64) {
	m.GlobalMissStreak.Set(float64(n))
}

func (m *Metrics) IncrementHistoryDrops() {
	m.HistoryDrops.Inc()
}
