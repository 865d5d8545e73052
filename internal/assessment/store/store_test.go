package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haven/internal/assessment"
	"haven/internal/storage"
	id "haven/pkg/domain"
)

func validResult(t *testing.T, answers []int) assessment.ScoreResult {
	t.Helper()
	result, err := assessment.Validate(id.InstrumentPHQ9, answers)
	require.NoError(t, err)
	return result
}

func TestStore_SaveAndListRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	userID := id.NewUserID()
	result := validResult(t, []int{3, 3, 3, 3, 3, 3, 2, 0, 0})
	rec := assessment.Record{
		ID:          id.NewAssessmentID(),
		UserID:      userID,
		Result:      result,
		Crisis:      assessment.Detect(result),
		SubmittedAt: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, s.Save(ctx, rec))

	records, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Result, got.Result)
	assert.True(t, got.Crisis.Triggered)
	assert.Equal(t, assessment.ReasonScoreThreshold, got.Crisis.Reason)
	assert.Equal(t, got.Result, got.Crisis.Source, "crisis source is rebuilt from the stored result")
	assert.True(t, rec.SubmittedAt.Equal(got.SubmittedAt))
}

func TestStore_HistoryIsChronological(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	userID := id.NewUserID()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	totals := []int{2, 9, 5}
	for i, answerValue := range []int{2, 3, 1} {
		result := validResult(t, []int{answerValue, answerValue, answerValue, 0, 0, 0, 0, 0, 0})
		totals[i] = result.Total
		rec := assessment.Record{
			ID:          id.NewAssessmentID(),
			UserID:      userID,
			Result:      result,
			Crisis:      assessment.Detect(result),
			SubmittedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.Save(ctx, rec))
	}

	records, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, totals[i], rec.Result.Total, "records must come back oldest first")
	}
}

func TestStore_ListScopesToUser(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	alice := id.NewUserID()
	bob := id.NewUserID()
	result := validResult(t, []int{1, 0, 0, 0, 0, 0, 0, 0, 0})

	require.NoError(t, s.Save(ctx, assessment.Record{
		ID: id.NewAssessmentID(), UserID: alice, Result: result,
		Crisis: assessment.Detect(result), SubmittedAt: time.Now(),
	}))

	records, err := s.ListByUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, records, "one user's history must never include another's")
}

func TestStore_CorruptRecordFailsTheRead(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := New(kv)

	userID := id.NewUserID()
	require.NoError(t, kv.Set(ctx, "assessment/"+userID.String()+"/0-bad", []byte("not json")))

	_, err := s.ListByUser(ctx, userID)
	assert.Error(t, err, "history must not be silently truncated")
}
