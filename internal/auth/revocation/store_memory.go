package revocation

import (
	"context"
	"sync"
	"time"
)

// Clock lets tests control expiry without sleeping.
type Clock func() time.Time

// MemoryList keeps revocations in process memory. Single-instance
// deployments and tests use this; anything multi-instance needs RedisList.
type MemoryList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> expiry
	clock   Clock
}

// MemoryListOption configures a MemoryList.
type MemoryListOption func(*MemoryList)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryListOption {
	return func(l *MemoryList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewMemoryList constructs an empty in-memory revocation list.
func NewMemoryList(opts ...MemoryListOption) *MemoryList {
	l := &MemoryList{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke adds a token to the revocation list with TTL. Revoking an already
// revoked token extends its entry to the later expiry.
func (l *MemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiry := l.clock().Add(ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[jti]; ok && existing.After(expiry) {
		return nil
	}
	l.entries[jti] = expiry
	return nil
}

// IsTokenRevoked checks if a token is on the revocation list. Expired
// entries read as not revoked; PruneExpired removes them.
func (l *MemoryList) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiry, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if l.clock().After(expiry) {
		return false, nil
	}
	return true, nil
}

// PruneExpired removes entries whose tokens have expired as of now and
// returns how many were dropped. Callers decide the sweep cadence.
func (l *MemoryList) PruneExpired(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for jti, expiry := range l.entries {
		if now.After(expiry) {
			delete(l.entries, jti)
			pruned++
		}
	}
	return pruned
}
