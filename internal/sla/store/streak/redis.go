// Package streak shares the consecutive crisis-miss count across service
// instances through Redis. A TTL on the key lets a stale streak decay when
// no instance is reporting, so a restart storm cannot pin the gauge high
// forever.
package streak

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKey = "sla:crisis:miss_streak"
	defaultTTL = 10 * time.Minute
)

// Store is a Redis-backed miss-streak counter.
type Store struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the Redis key, for tests that share an instance.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL overrides how long an untouched streak survives.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New constructs a Redis-backed streak store.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    defaultKey,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Increment bumps the shared streak and refreshes its TTL atomically.
func (s *Store) Increment(ctx context.Context) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key)
	pipe.Expire(ctx, s.key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Reset clears the shared streak.
func (s *Store) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
