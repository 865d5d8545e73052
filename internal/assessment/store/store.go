// Package store persists assessment records in the durable key/value
// collaborator. Keys order a user's history chronologically so a prefix
// listing returns records oldest-first without a separate index.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"haven/internal/assessment"
	"haven/internal/storage"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
)

const keyPrefix = "assessment/"

// Store reads and writes assessment records through the KV port. Encryption
// at rest is the KV's concern; callers on a crisis path wrap these calls in
// the guarantee enforcer.
type Store struct {
	kv storage.KV
}

// New constructs a Store over the given KV implementation.
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// record is the persisted form. IDs travel as canonical strings; the crisis
// source is not stored twice, it is rebuilt from the result on load.
type record struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Result      assessment.ScoreResult `json:"result"`
	Crisis      crisisRecord           `json:"crisis"`
	SubmittedAt time.Time              `json:"submitted_at"`
}

type crisisRecord struct {
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason,omitempty"`
}

// key layout: assessment/<user>/<zero-padded unix nanos>-<assessment id>.
// The padded timestamp makes lexicographic key order chronological.
func key(userID id.UserID, submittedAt time.Time, assessmentID id.AssessmentID) string {
	return fmt.Sprintf("%s%s/%020d-%s", keyPrefix, userID, submittedAt.UnixNano(), assessmentID)
}

// Save writes one record. Records are immutable: a new submission gets a new
// ID and a new key, never an overwrite of an old one.
func (s *Store) Save(ctx context.Context, rec assessment.Record) error {
	payload, err := json.Marshal(record{
		ID:          rec.ID.String(),
		UserID:      rec.UserID.String(),
		Result:      rec.Result,
		Crisis:      crisisRecord{Triggered: rec.Crisis.Triggered, Reason: rec.Crisis.Reason.String()},
		SubmittedAt: rec.SubmittedAt,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode assessment record")
	}
	if err := s.kv.Set(ctx, key(rec.UserID, rec.SubmittedAt, rec.ID), payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist assessment record")
	}
	return nil
}

// ListByUser returns a user's full history, oldest first. A record that no
// longer decodes fails the whole read: clinical history must not be silently
// truncated.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]assessment.Record, error) {
	entries, err := s.kv.List(ctx, keyPrefix+userID.String()+"/")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list assessment records")
	}

	records := make([]assessment.Record, 0, len(entries))
	for _, entry := range entries {
		rec, err := decode(entry.Value)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode assessment record "+entry.Key)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decode(value []byte) (assessment.Record, error) {
	var stored record
	if err := json.Unmarshal(value, &stored); err != nil {
		return assessment.Record{}, err
	}

	assessmentID, err := uuid.Parse(stored.ID)
	if err != nil {
		return assessment.Record{}, fmt.Errorf("parse assessment id: %w", err)
	}
	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return assessment.Record{}, fmt.Errorf("parse user id: %w", err)
	}

	return assessment.Record{
		ID:     id.AssessmentID(assessmentID),
		UserID: id.UserID(userID),
		Result: stored.Result,
		Crisis: assessment.CrisisSignal{
			Triggered: stored.Crisis.Triggered,
			Reason:    assessment.CrisisReason(stored.Crisis.Reason),
			Source:    stored.Result,
		},
		SubmittedAt: stored.SubmittedAt,
	}, nil
}
