package sla

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"haven/internal/sla/metrics"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/circuit"
	"haven/pkg/requestcontext"
)

const (
	// crisisMissThreshold is how many consecutive crisis-tier misses make a
	// reportable condition.
	crisisMissThreshold = 3

	// Budget for detached audit/streak writes after the outcome has already
	// been returned to the caller.
	detachedWriteTimeout = 2 * time.Second
)

// OpsTracker receives a fire-and-forget event per enforcement run.
type OpsTracker interface {
	Track(event audit.OpsEvent)
}

// CompliancePublisher records reportable degradations durably.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// StreakStore shares the consecutive crisis-miss count across instances.
// Implementations must be safe for concurrent use; errors are tolerated and
// the enforcer falls back to its in-process count.
type StreakStore interface {
	// Increment bumps the shared streak and returns the new value.
	Increment(ctx context.Context) (int64, error)
	// Reset clears the shared streak after a met crisis deadline.
	Reset(ctx context.Context) error
}

// Enforcer carries the recording side of guarantee enforcement: bounded run
// history, metrics, audit emission, and crisis escalation. The racing logic
// itself lives in Enforce; one Enforcer serves all tiers and is safe for
// concurrent use.
type Enforcer struct {
	history    *History
	metrics    *metrics.Metrics
	logger     *slog.Logger
	ops        OpsTracker
	compliance CompliancePublisher
	streaks    StreakStore
	breaker    *circuit.Breaker
	tracer     trace.Tracer

	// misses counts consecutive crisis-tier deadline misses on this
	// instance. Reset by the first met crisis deadline.
	misses atomic.Int64

	fallbackRetry bool
}

// Option configures an Enforcer.
type Option func(*Enforcer)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Enforcer) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Enforcer) {
		e.metrics = m
	}
}

func WithOpsTracker(ops OpsTracker) Option {
	return func(e *Enforcer) {
		e.ops = ops
	}
}

func WithCompliancePublisher(publisher CompliancePublisher) Option {
	return func(e *Enforcer) {
		e.compliance = publisher
	}
}

func WithStreakStore(store StreakStore) Option {
	return func(e *Enforcer) {
		e.streaks = store
	}
}

// WithHistoryCapacity bounds the run history ring.
func WithHistoryCapacity(capacity int) Option {
	return func(e *Enforcer) {
		e.history = NewHistory(capacity)
	}
}

// WithFallbackRetry makes a failed fallback retry once before degrading to
// the safe default. Off by default: a missed deadline returns immediately.
func WithFallbackRetry(retry bool) Option {
	return func(e *Enforcer) {
		e.fallbackRetry = retry
	}
}

// New constructs an Enforcer. All dependencies are optional: a bare Enforcer
// still races, records history, and escalates via its in-process breaker.
func New(opts ...Option) *Enforcer {
	e := &Enforcer{
		history: NewHistory(defaultHistoryCapacity),
		breaker: circuit.New("sla-crisis",
			circuit.WithFailureThreshold(crisisMissThreshold),
			// One met deadline ends a miss streak.
			circuit.WithSuccessThreshold(1),
		),
		tracer: otel.Tracer("haven/internal/sla"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// History exposes the bounded run history for reporting.
func (e *Enforcer) History() *History {
	return e.history
}

// CrisisDegraded reports whether the crisis tier is currently in the
// reportable degraded state.
func (e *Enforcer) CrisisDegraded() bool {
	return e.breaker.IsOpen()
}

// record books one finished run: history (non-blocking), metrics, the ops
// audit trail, and crisis escalation tracking. Nothing here may block the
// caller on I/O; durable writes go through detached goroutines.
func (e *Enforcer) record(ctx context.Context, entry HistoryEntry) {
	if e == nil {
		return
	}

	if !e.history.TryAppend(entry) && e.metrics != nil {
		e.metrics.IncrementHistoryDrops()
	}

	if e.metrics != nil {
		e.metrics.ObserveDuration(entry.Tier.String(), entry.Elapsed.Seconds())
		if !entry.MetSLA {
			e.metrics.IncrementMisses(entry.Tier.String())
		}
		if entry.UsedFallback {
			e.metrics.IncrementFallbacks(entry.Tier.String())
		}
		if entry.Source == SourceSafeDefault {
			e.metrics.IncrementSafeDefaults(entry.Tier.String())
		}
	}

	e.trackOutcome(ctx, entry)

	if entry.Tier == TierCrisis {
		e.recordCrisis(ctx, entry)
	}
}

func (e *Enforcer) trackOutcome(ctx context.Context, entry HistoryEntry) {
	if e.ops == nil {
		return
	}

	action := string(audit.EventGuaranteeMet)
	decision := "met"
	switch {
	case entry.UsedFallback:
		action = string(audit.EventFallbackEngaged)
		decision = string(entry.Source)
	case !entry.MetSLA:
		// The primary finished, late.
		decision = "missed"
	}

	e.ops.Track(audit.OpsEvent{
		Subject:   entry.Tier.String(),
		Action:    action,
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// recordCrisis maintains the consecutive-miss streak. Three in a row is a
// reportable condition, surfaced exactly once per degradation episode via
// the breaker's open transition.
func (e *Enforcer) recordCrisis(ctx context.Context, entry HistoryEntry) {
	if entry.MetSLA {
		if e.misses.Swap(0) != 0 && e.metrics != nil {
			e.metrics.SetCrisisMissStreak(0)
		}
		if _, change := e.breaker.RecordSuccess(); change.Closed {
			if e.logger != nil {
				e.logger.InfoContext(ctx, "crisis guarantee recovered", "tier", TierCrisis.String())
			}
		}
		e.resetStreakAsync()
		return
	}

	streak := e.misses.Add(1)
	if e.metrics != nil {
		e.metrics.SetCrisisMissStreak(streak)
	}
	if e.logger != nil {
		e.logger.WarnContext(ctx, "crisis deadline missed",
			"consecutive_misses", streak,
			"elapsed_ms", entry.Elapsed.Milliseconds(),
			"source", string(entry.Source),
		)
	}
	if _, change := e.breaker.RecordFailure(); change.Opened {
		e.escalate(ctx, streak)
	}
	e.bumpStreakAsync()
}

// escalate marks the reportable condition: counter, log, and a durable
// compliance record. The record is written off the caller's goroutine so an
// audit store slowdown cannot stretch a crisis-tier return.
func (e *Enforcer) escalate(ctx context.Context, streak int64) {
	if e.metrics != nil {
		e.metrics.IncrementEscalations()
	}
	if e.logger != nil {
		e.logger.ErrorContext(ctx, "CRITICAL: crisis guarantee degraded, reportable condition",
			"consecutive_misses", streak,
			"threshold", crisisMissThreshold,
		)
	}
	if e.compliance == nil {
		return
	}

	event := audit.ComplianceEvent{
		UserID:    requestcontext.UserID(ctx),
		Subject:   TierCrisis.String(),
		Action:    string(audit.EventDegradationReported),
		Decision:  "reportable",
		Reason:    "consecutive_crisis_misses",
		Severity:  "critical",
		RequestID: requestcontext.RequestID(ctx),
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), detachedWriteTimeout)
		defer cancel()
		if err := e.compliance.Emit(emitCtx, event); err != nil && e.logger != nil {
			e.logger.ErrorContext(emitCtx, "CRITICAL: failed to persist degradation report", "error", err)
		}
	}()
}

func (e *Enforcer) bumpStreakAsync() {
	if e.streaks == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachedWriteTimeout)
		defer cancel()
		n, err := e.streaks.Increment(ctx)
		if err != nil {
			if e.logger != nil {
				e.logger.WarnContext(ctx, "crisis streak store unavailable, using in-process count", "error", err)
			}
			return
		}
		if e.metrics != nil {
			e.metrics.SetGlobalMissStreak(n)
		}
	}()
}

func (e *Enforcer) resetStreakAsync() {
	if e.streaks == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachedWriteTimeout)
		defer cancel()
		if err := e.streaks.Reset(ctx); err != nil {
			if e.logger != nil {
				e.logger.WarnContext(ctx, "crisis streak store unavailable, using in-process count", "error", err)
			}
			return
		}
		if e.metrics != nil {
			e.metrics.SetGlobalMissStreak(0)
		}
	}()
}

// retries returns how many extra fallback attempts are allowed.
func (e *Enforcer) retries() int {
	if e == nil || !e.fallbackRetry {
		return 0
	}
	return 1
}

// startSpan opens a tracing span for one enforcement run. With no tracer
// provider installed the otel API yields no-op spans, so this is safe in
// every deployment.
func (e *Enforcer) startSpan(ctx context.Context, tier Tier) (context.Context, trace.Span) {
	if e == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.tracer.Start(ctx, "sla.enforce",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("sla.tier", tier.String())),
	)
}
