// Package circuit provides a minimal consecutive-count circuit breaker.
//
// The breaker tracks consecutive failures while closed and consecutive
// successes while open. Crossing the failure threshold opens the circuit;
// crossing the success threshold closes it again. Callers use the returned
// state to decide between a primary and a fallback path, and the StateChange
// result to emit a signal exactly once per transition.
package circuit

import "sync"

// State is the current position of the breaker.
type State string

const (
	// StateClosed means the primary path is in use.
	StateClosed State = "closed"
	// StateOpen means the primary path is suspected unhealthy and callers
	// should prefer the fallback.
	StateOpen State = "open"
)

// Defaults chosen for safety-critical paths: open quickly, close cautiously.
const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 2
)

// StateChange reports whether a Record call transitioned the breaker.
// At most one of Opened/Closed is set, and only on the call that caused
// the transition.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker is a mutex-guarded breaker safe for concurrent use.
type Breaker struct {
	name             string
	failureThreshold int
	successThreshold int

	mu        sync.Mutex
	state     State
	failures  int
	successes int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close the circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New constructs a closed Breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's identifying name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether the fallback path should be used.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure registers a failed primary attempt. It returns whether the
// caller should now use the fallback, and whether this call opened the
// circuit.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		// Already open; a failure only resets recovery progress.
		b.successes = 0
		return true, StateChange{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		b.successes = 0
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess registers a successful primary attempt. It returns whether
// the caller should use the primary path, and whether this call closed the
// circuit.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		b.failures = 0
		return true, StateChange{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

// Reset forces the breaker closed and clears all counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
