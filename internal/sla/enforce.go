package sla

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Operation is a deadline-racable unit of work. It must honor ctx
// cancellation promptly; one that does not may keep running after losing
// the race, in which case its result is discarded, so side effects must be
// idempotent or safe to drop.
type Operation[T any] func(ctx context.Context) (T, error)

// ResultSource says which path produced an outcome's value.
type ResultSource string

const (
	// SourcePrimary: the operation itself finished and its value is returned.
	SourcePrimary ResultSource = "primary"
	// SourceFallback: the fallback's value is returned.
	SourceFallback ResultSource = "fallback"
	// SourceSafeDefault: both paths failed; Value is the zero value of T.
	SourceSafeDefault ResultSource = "safe_default"
)

// Outcome is the always-produced result of an enforced run. A missed
// deadline is data, never an error: callers inspect MetSLA and Source.
//
//   - MetSLA is true only when a real value (primary or fallback) was
//     produced inside the tier budget. Safe defaults never count as met.
//   - UsedFallback is true whenever the primary's value was not returned,
//     whether because the deadline fired or the primary failed.
type Outcome[T any] struct {
	Value        T
	Source       ResultSource
	Tier         Tier
	Elapsed      time.Duration
	MetSLA       bool
	UsedFallback bool
}

type opResult[T any] struct {
	value T
	err   error
}

// Enforce races op against the tier's fixed deadline.
//
// If op finishes first with a value, that value is returned and MetSLA
// reflects elapsed time against the budget. If the deadline fires first the
// primary is abandoned (its context is canceled and a late result is
// discarded) and fallback is invoked immediately. A fallback that fails or
// panics degrades to the zero value of T as a typed safe default.
//
// Enforce never panics and never returns an error: a crisis-tier caller
// always receives some outcome. Panics inside op or fallback are recovered
// and treated as failures of that path. Retrying a failed fallback once is
// an Enforcer construction knob, off by default.
func Enforce[T any](ctx context.Context, e *Enforcer, tier Tier, op, fallback Operation[T]) Outcome[T] {
	deadline := tier.Deadline()
	start := time.Now()

	ctx, span := e.startSpan(ctx, tier)
	defer span.End()

	var outcome Outcome[T]
	res, timedOut := race(ctx, deadline, op)
	if !timedOut && res.err == nil {
		elapsed := time.Since(start)
		outcome = Outcome[T]{
			Value:   res.value,
			Source:  SourcePrimary,
			Tier:    tier,
			Elapsed: elapsed,
			MetSLA:  elapsed <= deadline,
		}
	} else {
		outcome = degrade(ctx, e, tier, start, timedOut, fallback)
	}

	span.SetAttributes(
		attribute.Bool("sla.met", outcome.MetSLA),
		attribute.Bool("sla.used_fallback", outcome.UsedFallback),
		attribute.String("sla.source", string(outcome.Source)),
		attribute.Int64("sla.elapsed_ms", outcome.Elapsed.Milliseconds()),
	)

	e.record(ctx, HistoryEntry{
		Tier:         tier,
		Source:       outcome.Source,
		Elapsed:      outcome.Elapsed,
		MetSLA:       outcome.MetSLA,
		UsedFallback: outcome.UsedFallback,
		At:           start,
	})

	return outcome
}

// degrade runs the fallback path after the primary was abandoned or failed.
// deadlineMissed pins MetSLA to false for runs where the budget fired; a
// fallback recovering from a fast primary failure can still meet the budget.
func degrade[T any](ctx context.Context, e *Enforcer, tier Tier, start time.Time, deadlineMissed bool, fallback Operation[T]) Outcome[T] {
	deadline := tier.Deadline()

	attempts := 1 + e.retries()
	for i := 0; i < attempts; i++ {
		res, timedOut := race(ctx, deadline, fallback)
		if timedOut || res.err != nil {
			continue
		}
		elapsed := time.Since(start)
		return Outcome[T]{
			Value:        res.value,
			Source:       SourceFallback,
			Tier:         tier,
			Elapsed:      elapsed,
			MetSLA:       !deadlineMissed && elapsed <= deadline,
			UsedFallback: true,
		}
	}

	var zero T
	return Outcome[T]{
		Value:        zero,
		Source:       SourceSafeDefault,
		Tier:         tier,
		Elapsed:      time.Since(start),
		MetSLA:       false,
		UsedFallback: true,
	}
}

// race runs fn with its own budget-bounded context and waits for whichever
// comes first: completion or the budget. The result channel is buffered so
// a losing fn can finish in the background without leaking a goroutine
// blocked on send.
func race[T any](ctx context.Context, budget time.Duration, fn Operation[T]) (opResult[T], bool) {
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	resultCh := make(chan opResult[T], 1)
	go func() {
		resultCh <- runProtected(runCtx, fn)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res, false
	case <-timer.C:
		return opResult[T]{}, true
	}
}

// runProtected converts a panic in fn into a failed result so one bad
// operation cannot take down a crisis caller.
func runProtected[T any](ctx context.Context, fn Operation[T]) (result opResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = opResult[T]{err: fmt.Errorf("operation panicked: %v", r)}
		}
	}()
	if fn == nil {
		return opResult[T]{err: fmt.Errorf("no operation provided")}
	}
	value, err := fn(ctx)
	return opResult[T]{value: value, err: err}
}
