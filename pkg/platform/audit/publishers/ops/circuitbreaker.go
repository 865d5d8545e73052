package ops

import (
	"sync"
	"time"
)

// CircuitBreaker keeps the tracker from hammering an audit store that is
// already down. After threshold consecutive failures the circuit opens and
// events are dropped without touching the store; once the cooldown passes, a
// single probe write is let through and its outcome decides whether the
// circuit closes again.
type CircuitBreaker struct {
	mu        sync.RWMutex
	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
}

// NewCircuitBreaker returns a breaker opening after threshold consecutive
// failures and staying open for cooldown. Non-positive arguments fall back
// to 5 failures and one minute.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a write may proceed. An expired cooldown allows the
// probe through; the failure count stays put, so a failed probe re-opens the
// circuit on the next RecordFailure rather than earning a fresh threshold.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return !cb.open(time.Now())
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.openUntil = time.Time{}
}

// RecordFailure counts one failure. Reaching the threshold opens the
// circuit; failures past it re-arm the cooldown.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.openUntil = time.Now().Add(cb.cooldown)
	}
}

// IsOpen reports whether writes are currently being rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.open(time.Now())
}

// open is the state predicate. Callers hold the lock.
func (cb *CircuitBreaker) open(now time.Time) bool {
	return cb.failures >= cb.threshold && now.Before(cb.openUntil)
}
