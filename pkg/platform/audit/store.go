package audit

import (
	"context"

	id "haven/pkg/domain"
)

// Store is the append-only sink for audit events. Implementations must treat
// Append as immutable history: no updates, no deletes.
//
// The postgres implementation writes to a transactional outbox so the audit
// record commits atomically with the domain write it describes.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Query is the read surface over materialized audit events. Only operator
// tooling and compliance review use it; request paths never read audit
// history.
type Query interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
