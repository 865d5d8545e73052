package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"haven/internal/assessment"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
)

func (s *ServiceSuite) TestHistory() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("nil user id returns invalid input", func() {
		_, err := s.service.History(ctx, id.UserID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("returns stored records with read audit", func() {
		records := []assessment.Record{
			{ID: id.NewAssessmentID(), UserID: userID, SubmittedAt: time.Now().Add(-48 * time.Hour)},
			{ID: id.NewAssessmentID(), UserID: userID, SubmittedAt: time.Now().Add(-time.Hour)},
		}
		s.mockStore.EXPECT().ListByUser(gomock.Any(), userID).Return(records, nil)
		s.expectOpsEvents(1)

		got, err := s.service.History(ctx, userID)
		s.Require().NoError(err)
		s.Equal(records, got)

		s.Require().Len(s.opsEvents, 1)
		s.Equal(string(audit.EventAssessmentRead), s.opsEvents[0].Action)
		s.Equal("allowed", s.opsEvents[0].Decision)
		s.Equal(userID.String(), s.opsEvents[0].Subject)
	})

	s.Run("empty history is a valid result", func() {
		s.mockStore.EXPECT().ListByUser(gomock.Any(), userID).Return([]assessment.Record{}, nil)
		s.expectOpsEvents(1)

		got, err := s.service.History(ctx, userID)
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("store failure degrades to unavailable", func() {
		s.mockStore.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, assert.AnError)

		_, err := s.service.History(ctx, userID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}
