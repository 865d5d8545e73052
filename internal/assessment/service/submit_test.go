package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"haven/internal/assessment"
	"haven/internal/isolation"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/requestcontext"
)

// Answer vectors used across the submit tests. The last PHQ-9 item is the
// suicidal ideation probe; keeping it zero keeps a vector non-crisis.
var (
	phq9Mild     = []int{1, 1, 1, 1, 1, 1, 1, 1, 0} // total 8
	phq9Ideation = []int{0, 0, 0, 0, 0, 0, 0, 0, 1} // total 1, ideation item set
	gad7Severe   = []int{3, 3, 3, 3, 3, 0, 0}       // total 15, at threshold
)

func (s *ServiceSuite) TestSubmit_Validation() {
	ctx := context.Background()

	s.Run("nil user id returns invalid input", func() {
		_, err := s.service.Submit(ctx, id.UserID{}, id.InstrumentPHQ9, phq9Mild)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("wrong answer count rejected with ops event", func() {
		userID := id.NewUserID()
		s.expectOpsEvents(1)

		_, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, []int{1, 2, 3})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var countErr *assessment.WrongAnswerCountError
		s.Require().True(errors.As(err, &countErr))
		s.Equal(9, countErr.Want)
		s.Equal(3, countErr.Got)

		s.Require().Len(s.opsEvents, 1)
		s.Equal(string(audit.EventAssessmentRejected), s.opsEvents[0].Action)
		s.Equal("rejected", s.opsEvents[0].Decision)
		s.Equal(userID.String(), s.opsEvents[0].Subject)
	})

	s.Run("out of range answer rejected not clamped", func() {
		s.expectOpsEvents(1)

		_, err := s.service.Submit(ctx, id.NewUserID(), id.InstrumentGAD7, []int{4, 0, 0, 0, 0, 0, 0})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var rangeErr *assessment.AnswerOutOfRangeError
		s.Require().True(errors.As(err, &rangeErr))
		s.Equal(0, rangeErr.Index)
		s.Equal(4, rangeErr.Value)
	})
}

func (s *ServiceSuite) TestSubmit_Persistence() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("scored submission persists and audits", func() {
		var saved assessment.Record
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, record assessment.Record) error {
				saved = record
				return nil
			})
		s.expectComplianceEvents(1)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Mild)
		s.Require().NoError(err)
		s.Require().NotNil(rec)
		s.Equal(8, rec.Result.Total)
		s.Equal(assessment.SeverityMild, rec.Result.Severity)
		s.False(rec.Crisis.Triggered)
		s.False(rec.ID.IsNil())
		s.False(rec.SubmittedAt.IsZero())
		s.Equal(*rec, saved)

		s.Require().Len(s.complianceEvents, 1)
		event := s.complianceEvents[0]
		s.Equal(string(audit.EventAssessmentSubmitted), event.Action)
		s.Equal("accepted", event.Decision)
		s.Equal("phq9", event.Instrument)
		s.Equal("mild", event.Severity)
		s.Equal(rec.ID.String(), event.Subject)
		s.Equal(userID, event.UserID)
	})

	s.Run("store failure degrades to unavailable", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(assert.AnError)

		_, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Mild)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("audit pipeline failure does not fail the submission", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockCompliance.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(assert.AnError)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentGAD7, []int{1, 1, 1, 1, 0, 0, 0})
		s.Require().NoError(err)
		s.NotNil(rec)
	})
}

func (s *ServiceSuite) TestSubmit_CrisisIntervention() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("ideation item triggers enriched intervention", func() {
		contact := map[string]any{
			"contact_name":  "Jordan Reyes",
			"contact_phone": "+15550100",
			"billing_email": "jordan@example.com",
		}
		cleaned := map[string]any{
			"contact_name":  "Jordan Reyes",
			"contact_phone": "+15550100",
		}
		var checked isolation.Context
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(contact, nil)
		s.mockGuard.EXPECT().Check(gomock.Any(), contact, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ map[string]any, ictx isolation.Context) isolation.Result {
				checked = ictx
				return isolation.Result{Isolated: true, CorrectedData: cleaned}
			})
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), cleaned).Return(nil)
		s.expectComplianceEvents(2)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Ideation)
		s.Require().NoError(err)
		s.Require().NotNil(rec)
		s.True(rec.Crisis.Triggered)
		s.Equal(assessment.ReasonSuicidalIdeationItem, rec.Crisis.Reason)

		// Contact data crosses into clinical code as a crisis-context
		// emergency access, never as a plain read.
		s.Equal(isolation.ContextCrisis, checked.ContextType)
		s.True(checked.EmergencyAccess)
		s.Equal(isolation.TierFree, checked.Tier)

		s.Require().Len(s.complianceEvents, 2)
		detected := s.complianceEvents[0]
		s.Equal(string(audit.EventCrisisDetected), detected.Action)
		s.Equal("triggered", detected.Decision)
		s.Equal(string(assessment.ReasonSuicidalIdeationItem), detected.Reason)
		s.Equal("phq9", detected.Instrument)
		s.Equal(rec.ID.String(), detected.Subject)

		escalated := s.complianceEvents[1]
		s.Equal(string(audit.EventCrisisEscalated), escalated.Action)
		s.Equal("dispatched", escalated.Decision)
	})

	s.Run("score threshold triggers intervention", func() {
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(nil, assert.AnError)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil)
		s.expectComplianceEvents(2)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentGAD7, gad7Severe)
		s.Require().NoError(err)
		s.True(rec.Crisis.Triggered)
		s.Equal(assessment.ReasonScoreThreshold, rec.Crisis.Reason)
		s.Equal(string(assessment.ReasonScoreThreshold), s.complianceEvents[0].Reason)
		s.Equal("dispatched", s.complianceEvents[1].Decision)
	})

	s.Run("empty contact record skips the boundary check", func() {
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(map[string]any{}, nil)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil)
		s.expectComplianceEvents(2)

		_, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Ideation)
		s.Require().NoError(err)
	})

	s.Run("subscription tier claim reaches the boundary check", func() {
		tierCtx := requestcontext.WithSubscriptionTier(ctx, "premium")
		contact := map[string]any{"contact_phone": "+15550100"}
		var checked isolation.Context
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(contact, nil)
		s.mockGuard.EXPECT().Check(gomock.Any(), contact, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ map[string]any, ictx isolation.Context) isolation.Result {
				checked = ictx
				return isolation.Result{Isolated: true, CorrectedData: contact}
			})
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), contact).Return(nil)
		s.expectComplianceEvents(2)

		_, err := s.service.Submit(tierCtx, userID, id.InstrumentPHQ9, phq9Ideation)
		s.Require().NoError(err)
		s.Equal(isolation.TierPremium, checked.Tier)
	})
}

func (s *ServiceSuite) TestSubmit_CrisisDegradation() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Run("persist failure falls back to unenriched alert", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(assert.AnError)
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(nil, assert.AnError)
		// Primary dispatch succeeds but the intervention as a whole failed,
		// so the fallback re-sends. Duplicate alerts are the accepted cost.
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil).Times(2)
		s.expectComplianceEvents(2)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Ideation)
		s.Require().NoError(err)
		s.NotNil(rec)
		s.Equal("dispatched_unenriched", s.complianceEvents[1].Decision)
	})

	s.Run("total infrastructure failure never errors the caller", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(assert.AnError)
		s.mockContacts.EXPECT().EmergencyContact(gomock.Any(), userID).Return(nil, assert.AnError)
		s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Nil()).Return(assert.AnError).Times(2)
		s.expectComplianceEvents(2)

		rec, err := s.service.Submit(ctx, userID, id.InstrumentPHQ9, phq9Ideation)
		s.Require().NoError(err)
		s.Require().NotNil(rec)
		s.True(rec.Crisis.Triggered)
		s.Equal(assessment.ReasonSuicidalIdeationItem, rec.Crisis.Reason)
		s.Equal("failed", s.complianceEvents[1].Decision)
	})
}
