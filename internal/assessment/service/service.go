// Package service implements the assessment submission workflow around the
// pure scoring core: validation, persistence under the performance guarantee
// enforcer, and the crisis intervention path.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"haven/internal/assessment"
	"haven/internal/assessment/metrics"
	"haven/internal/isolation"
	"haven/internal/sla"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/requestcontext"
)

// Store persists and lists assessment records.
type Store interface {
	Save(ctx context.Context, record assessment.Record) error
	ListByUser(ctx context.Context, userID id.UserID) ([]assessment.Record, error)
}

// CrisisNotifier dispatches a crisis alert to the intervention channel.
// Contact carries isolation-checked contact details and may be nil when
// enrichment was skipped or failed; the alert must still go out.
type CrisisNotifier interface {
	Notify(ctx context.Context, record assessment.Record, contact map[string]any) error
}

// ContactDirectory looks up a user's emergency contact details. The fields
// originate in billing records, so callers pass them through the isolation
// guard before any clinical code sees them.
type ContactDirectory interface {
	EmergencyContact(ctx context.Context, userID id.UserID) (map[string]any, error)
}

// IsolationGuard checks data crossing a context boundary.
type IsolationGuard interface {
	Check(ctx context.Context, data map[string]any, ictx isolation.Context) isolation.Result
}

// CompliancePublisher records regulatory-significant events durably.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// OpsTracker receives fire-and-forget operational events.
type OpsTracker interface {
	Track(event audit.OpsEvent)
}

// Service runs the submission workflow: validate, score, detect, persist,
// and on a triggered signal the crisis intervention path. Persistence and
// intervention always run under the guarantee enforcer; a crisis caller
// gets the signal back no matter how degraded the infrastructure is.
type Service struct {
	store      Store
	enforcer   *sla.Enforcer
	notifier   CrisisNotifier
	contacts   ContactDirectory
	guard      IsolationGuard
	compliance CompliancePublisher
	ops        OpsTracker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCrisisNotifier(notifier CrisisNotifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithContactDirectory(contacts ContactDirectory) Option {
	return func(s *Service) {
		s.contacts = contacts
	}
}

func WithIsolationGuard(guard IsolationGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

func WithCompliancePublisher(publisher CompliancePublisher) Option {
	return func(s *Service) {
		s.compliance = publisher
	}
}

func WithOpsTracker(tracker OpsTracker) Option {
	return func(s *Service) {
		s.ops = tracker
	}
}

// New constructs the workflow service. The store is required; every other
// collaborator is optional and degrades to a no-op.
func New(store Store, enforcer *sla.Enforcer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("assessment store is required")
	}
	s := &Service{
		store:    store,
		enforcer: enforcer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit validates and scores a questionnaire submission, detects crisis
// signals, and persists the outcome. Validation failures return typed
// errors. A triggered signal switches to the intervention path, which
// degrades rather than fail: once validation passed, a crisis caller always
// gets the scored record back.
func (s *Service) Submit(ctx context.Context, userID id.UserID, instrument id.Instrument, answers []int) (*assessment.Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}

	result, err := assessment.Validate(instrument, answers)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementValidationFailures()
		}
		s.trackOps(ctx, audit.OpsEvent{
			Subject:  userID.String(),
			Action:   string(audit.EventAssessmentRejected),
			Decision: "rejected",
		})
		return nil, err
	}

	record := &assessment.Record{
		ID:          id.NewAssessmentID(),
		UserID:      userID,
		Result:      result,
		Crisis:      assessment.Detect(result),
		SubmittedAt: time.Now().UTC(),
	}
	if s.metrics != nil {
		s.metrics.IncrementSubmissions(string(instrument))
	}

	if record.Crisis.Triggered {
		s.escalate(ctx, record)
		return record, nil
	}

	outcome := sla.Enforce(ctx, s.enforcer, sla.TierAssessment, func(ctx context.Context) (struct{}, error) {
		if err := s.store.Save(ctx, *record); err != nil {
			s.logError(ctx, "assessment persist failed", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, nil)
	if outcome.Source == sla.SourceSafeDefault {
		return nil, dErrors.New(dErrors.CodeUnavailable, "could not persist assessment")
	}

	s.emitCompliance(ctx, audit.ComplianceEvent{
		UserID:     userID,
		Subject:    record.ID.String(),
		Action:     string(audit.EventAssessmentSubmitted),
		Instrument: string(instrument),
		Decision:   "accepted",
		Severity:   record.Result.Severity.String(),
	})
	return record, nil
}

// History lists a user's past assessment records, oldest first. The read
// runs under the standard budget; an unavailable or degraded store is an
// error, never a silently shortened history.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]assessment.Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}

	outcome := sla.Enforce(ctx, s.enforcer, sla.TierStandard, func(ctx context.Context) ([]assessment.Record, error) {
		records, err := s.store.ListByUser(ctx, userID)
		if err != nil {
			s.logError(ctx, "history read failed", err)
		}
		return records, err
	}, nil)
	if outcome.Source == sla.SourceSafeDefault {
		return nil, dErrors.New(dErrors.CodeUnavailable, "assessment history unavailable")
	}

	if s.metrics != nil {
		s.metrics.IncrementHistoryReads()
	}
	s.trackOps(ctx, audit.OpsEvent{
		Subject:  userID.String(),
		Action:   string(audit.EventAssessmentRead),
		Decision: "allowed",
	})
	return outcome.Value, nil
}

// escalate runs the crisis intervention path entirely under the crisis
// budget. It never returns an error to the submitting caller; the outcome,
// degraded or not, is audited and measured.
func (s *Service) escalate(ctx context.Context, record *assessment.Record) {
	if s.metrics != nil {
		s.metrics.IncrementCrisisDetections(string(record.Crisis.Reason))
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "crisis signal detected",
			"assessment_id", record.ID.String(),
			"instrument", string(record.Result.Instrument),
			"reason", string(record.Crisis.Reason),
			"severity", record.Result.Severity.String(),
		)
	}
	s.emitCompliance(ctx, audit.ComplianceEvent{
		UserID:     record.UserID,
		Subject:    record.ID.String(),
		Action:     string(audit.EventCrisisDetected),
		Instrument: string(record.Result.Instrument),
		Decision:   "triggered",
		Reason:     string(record.Crisis.Reason),
		Severity:   record.Result.Severity.String(),
	})

	outcome := sla.Enforce(ctx, s.enforcer, sla.TierCrisis,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.intervene(ctx, record)
		},
		func(ctx context.Context) (struct{}, error) {
			// Unenriched alert: the notifier resolves contact on its side.
			if s.notifier == nil {
				return struct{}{}, nil
			}
			return struct{}{}, s.notifier.Notify(ctx, *record, nil)
		},
	)

	decision := "dispatched"
	switch outcome.Source {
	case sla.SourceFallback:
		decision = "dispatched_unenriched"
	case sla.SourceSafeDefault:
		decision = "failed"
		if s.metrics != nil {
			s.metrics.IncrementCrisisEscalationErrors()
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "CRITICAL: crisis intervention could not be confirmed",
				"assessment_id", record.ID.String(),
			)
		}
	}
	s.emitCompliance(ctx, audit.ComplianceEvent{
		UserID:   record.UserID,
		Subject:  record.ID.String(),
		Action:   string(audit.EventCrisisEscalated),
		Decision: decision,
		Reason:   string(record.Crisis.Reason),
	})
}

// intervene persists the crisis record and dispatches the alert in
// parallel. Siblings do not cancel each other: a failed persist must not
// take the alert down with it. Both effects are idempotent per record ID,
// so the enforcer rerunning them in the fallback is safe.
func (s *Service) intervene(ctx context.Context, record *assessment.Record) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.store.Save(ctx, *record); err != nil {
			s.logError(ctx, "crisis record persist failed", err)
			return err
		}
		return nil
	})
	if s.notifier != nil {
		g.Go(func() error {
			contact := s.emergencyContact(ctx, record.UserID)
			if err := s.notifier.Notify(ctx, *record, contact); err != nil {
				s.logError(ctx, "crisis alert dispatch failed", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// emergencyContact resolves contact details for the crisis alert. The data
// originates in payment context, so it crosses into the crisis context
// through the isolation guard under emergency access. Lookup failures
// degrade to an unenriched alert; they never block it.
func (s *Service) emergencyContact(ctx context.Context, userID id.UserID) map[string]any {
	if s.contacts == nil || s.guard == nil {
		return nil
	}
	raw, err := s.contacts.EmergencyContact(ctx, userID)
	if err != nil {
		s.logError(ctx, "emergency contact lookup failed", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	res := s.guard.Check(ctx, raw, isolation.Context{
		Tier:            s.tierFromContext(ctx),
		ContextType:     isolation.ContextCrisis,
		EmergencyAccess: true,
	})
	return res.CorrectedData
}

// tierFromContext reads the caller's subscription tier claim, defaulting to
// free. Free still allows the crisis context and its bypass.
func (s *Service) tierFromContext(ctx context.Context) isolation.SubscriptionTier {
	if raw := requestcontext.SubscriptionTier(ctx); raw != "" {
		if tier, err := isolation.ParseSubscriptionTier(raw); err == nil {
			return tier
		}
	}
	return isolation.TierFree
}

// emitCompliance writes a durable audit event, filling in the request
// correlation ID. Sink degradation is logged, never propagated; the
// workflow result does not depend on the audit pipeline.
func (s *Service) emitCompliance(ctx context.Context, event audit.ComplianceEvent) {
	if s.compliance == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.compliance.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to persist assessment audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) trackOps(ctx context.Context, event audit.OpsEvent) {
	if s.ops == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	s.ops.Track(event)
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, "error", err)
	}
}
