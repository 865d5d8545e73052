// Package ops provides a best-effort audit tracker for operational events.
//
// Tracking is fire-and-forget: events are sampled, guarded by a circuit
// breaker against store outages, and persisted asynchronously. Losing an ops
// event costs a data point on a dashboard, never a request.
//
// Use for: guarantee_met, fallback_engaged, isolation_checked,
// assessment_read.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "haven/pkg/platform/audit"
)

// Tracker emits operational audit events with sampling and outage protection.
type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	logger  *slog.Logger
	metrics *Metrics

	timeout time.Duration
}

// Option configures the Tracker.
type Option func(*Tracker)

// WithLogger sets a logger for persist error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithSampler overrides the default sampler (which keeps everything).
func WithSampler(s *Sampler) Option {
	return func(t *Tracker) { t.sampler = s }
}

// WithCircuitBreaker overrides the default breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(t *Tracker) { t.breaker = cb }
}

// New creates an ops tracker.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		sampler: NewSampler(1.0),
		breaker: NewCircuitBreaker(5, time.Minute),
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records an operational event. It returns immediately; persistence
// happens on a detached goroutine. Sampled-out and breaker-dropped events are
// counted, not persisted.
func (t *Tracker) Track(event audit.OpsEvent) {
	if !t.sampler.ShouldSample(event.Action) {
		if t.metrics != nil {
			t.metrics.IncSampled()
		}
		return
	}

	if !t.breaker.Allow() {
		if t.metrics != nil {
			t.metrics.IncCircuitBreakerDropped()
			t.metrics.SetCircuitBreakerState(true)
		}
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	go t.persist(event)
}

func (t *Tracker) persist(event audit.OpsEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := t.store.Append(ctx, event.ToEvent()); err != nil {
		t.breaker.RecordFailure()
		if t.metrics != nil {
			t.metrics.IncPersistFailures()
			t.metrics.SetCircuitBreakerState(t.breaker.IsOpen())
		}
		if t.logger != nil {
			t.logger.Debug("ops audit persist failed",
				"action", event.Action,
				"error", err,
			)
		}
		return
	}

	t.breaker.RecordSuccess()
	if t.metrics != nil {
		t.metrics.IncTracked()
		t.metrics.SetCircuitBreakerState(false)
	}
}
