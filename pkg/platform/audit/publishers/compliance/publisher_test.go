package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "haven/pkg/domain"
	audit "haven/pkg/platform/audit"
	"haven/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(context.Context, audit.Event) error { return s.err }

func TestPublisher_EmitPersists(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	userID := id.UserID(uuid.New())
	err := pub.Emit(context.Background(), audit.ComplianceEvent{
		UserID:   userID,
		Action:   string(audit.EventCrisisDetected),
		Decision: "triggered",
		Reason:   "suicidal_ideation_item",
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, "suicidal_ideation_item", events[0].Reason)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp must be stamped")
}

func TestPublisher_FailClosed(t *testing.T) {
	// A failed audit write must surface as an error so the calling operation
	// fails with it.
	pub := New(&failingStore{err: errors.New("outbox unavailable")})

	err := pub.Emit(context.Background(), audit.ComplianceEvent{
		UserID: id.UserID(uuid.New()),
		Action: string(audit.EventEmergencyBypass),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compliance audit persistence failed")
}

func TestPublisher_RequiredFields(t *testing.T) {
	pub := New(memory.NewInMemoryStore())

	t.Run("missing user", func(t *testing.T) {
		err := pub.Emit(context.Background(), audit.ComplianceEvent{
			Action: string(audit.EventCrisisDetected),
		})
		require.Error(t, err)
	})

	t.Run("missing action", func(t *testing.T) {
		err := pub.Emit(context.Background(), audit.ComplianceEvent{
			UserID: id.UserID(uuid.New()),
		})
		require.Error(t, err)
	})
}

func TestPublisher_PreservesTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	userID := id.UserID(uuid.New())
	stamp := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	err := pub.Emit(context.Background(), audit.ComplianceEvent{
		UserID:    userID,
		Action:    string(audit.EventCrisisEscalated),
		Timestamp: stamp,
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
}
