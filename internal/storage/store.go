// Package storage provides the durable key/value collaborator the app uses
// to persist score history. The port is byte-oriented so callers own
// serialization and the encrypting decorator can wrap any implementation.
package storage

import (
	"context"
)

// Entry is one stored key/value pair.
type Entry struct {
	Key   string
	Value []byte
}

// KV is the storage port. Implementations must be safe for concurrent use.
// Callers on a crisis path wrap these calls in the guarantee enforcer; the
// implementations themselves do not enforce deadlines.
type KV interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns entries whose keys start with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
}
