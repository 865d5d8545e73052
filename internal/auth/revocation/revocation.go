// Package revocation maintains the token revocation list: the set of JTIs
// that must stop working before their tokens naturally expire. Entries carry
// a TTL matching the token's remaining lifetime, so the list stays bounded
// without a reaper.
package revocation

import (
	"context"
	"fmt"
	"time"

	"haven/pkg/platform/sentinel"
)

// List is the revocation list port. Implementations must be safe for
// concurrent use. IsTokenRevoked matches the auth middleware's checker
// interface so stores plug in without glue.
type List interface {
	// Revoke adds jti with a TTL covering the token's remaining lifetime.
	// An empty jti is a no-op.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsTokenRevoked reports whether jti is on the list. Expired entries
	// read as not revoked.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
