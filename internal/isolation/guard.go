package isolation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"haven/internal/isolation/metrics"
	"haven/pkg/platform/audit"
	"haven/pkg/requestcontext"
)

// CompliancePublisher records bypass grants and segregation violations
// durably.
type CompliancePublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// SecurityPublisher feeds denied bypass attempts to security monitoring.
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// OpsTracker receives a fire-and-forget event per clean check.
type OpsTracker interface {
	Track(event audit.OpsEvent)
}

// Guard checks data crossing context boundaries against a fixed segregation
// policy. One Guard serves all callers and is safe for concurrent use; the
// policy it holds is validated at construction and read-only afterwards.
type Guard struct {
	policy     *Policy
	logger     *slog.Logger
	metrics    *metrics.Metrics
	compliance CompliancePublisher
	security   SecurityPublisher
	ops        OpsTracker
	tracer     trace.Tracer
}

// Option configures a Guard.
type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithCompliancePublisher(publisher CompliancePublisher) Option {
	return func(g *Guard) {
		g.compliance = publisher
	}
}

func WithSecurityPublisher(publisher SecurityPublisher) Option {
	return func(g *Guard) {
		g.security = publisher
	}
}

func WithOpsTracker(tracker OpsTracker) Option {
	return func(g *Guard) {
		g.ops = tracker
	}
}

// New validates the policy and constructs a Guard. A nil policy selects the
// built-in default. An invalid policy is a construction error: the process
// must not serve traffic with a broken segregation policy.
func New(policy *Policy, opts ...Option) (*Guard, error) {
	if policy == nil {
		policy = Default()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	g := &Guard{
		policy: policy,
		tracer: otel.Tracer("haven/internal/isolation"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Check runs the per-call state machine: emergency bypass or validate, then
// scan, correct, audit. It never returns an error; violations are values on
// the Result, and exactly one audit entry is produced on every path. The
// input map is never mutated.
func (g *Guard) Check(ctx context.Context, data map[string]any, ictx Context) Result {
	ctx, span := g.startSpan(ctx, ictx)
	defer span.End()

	if ictx.EmergencyAccess && ictx.ContextType == ContextCrisis {
		if g.policy.BypassAllowed(ictx.Tier) {
			res := g.bypass(ctx, data, ictx)
			finishSpan(span, res)
			return res
		}
		g.denyBypass(ctx, ictx)
	}

	validated := g.policy.ContextAllowed(ictx.Tier, ictx.ContextType)
	violations := g.scan(data, ictx)
	corrected, strippedFields := correct(data, violations)

	remaining := 0
	for _, v := range violations {
		if v.Remaining() {
			remaining++
		}
	}
	isolated := validated && remaining == 0

	entry := AuditEntry{
		ID:               uuid.New(),
		At:               time.Now().UTC(),
		Tier:             ictx.Tier,
		ContextType:      ictx.ContextType,
		EmergencyAccess:  ictx.EmergencyAccess,
		ContextValidated: validated,
		ViolationCount:   len(violations),
		CorrectedFields:  strippedFields,
		Status:           StatusNonCompliant,
	}
	if isolated {
		entry.Status = StatusCompliant
	}

	res := Result{
		Isolated:      isolated,
		Violations:    violations,
		CorrectedData: corrected,
		Audit:         entry,
	}
	g.record(ctx, ictx, res)
	finishSpan(span, res)
	return res
}

// bypass passes data through without scanning. Never-bypass fields are the
// one exception: raw payment primitives are stripped even here, and the
// stripping is recorded on the audit entry. The grant itself is a durable
// compliance record.
func (g *Guard) bypass(ctx context.Context, data map[string]any, ictx Context) Result {
	passed := copyData(data)
	var stripped []string
	for _, field := range g.policy.NeverBypass {
		if _, ok := passed[field]; ok {
			delete(passed, field)
			stripped = append(stripped, field)
		}
	}

	entry := AuditEntry{
		ID:               uuid.New(),
		At:               time.Now().UTC(),
		Tier:             ictx.Tier,
		ContextType:      ictx.ContextType,
		EmergencyAccess:  true,
		ContextValidated: true,
		StrippedFields:   stripped,
		Status:           StatusCompliant,
	}

	if g.metrics != nil {
		g.metrics.IncrementBypasses()
		g.metrics.IncrementChecks(ictx.ContextType.String(), "bypass")
	}
	if g.logger != nil {
		g.logger.InfoContext(ctx, "emergency bypass granted",
			"tier", ictx.Tier.String(),
			"context", ictx.ContextType.String(),
			"stripped_fields", len(stripped),
		)
	}
	g.emitCompliance(ctx, audit.ComplianceEvent{
		UserID:    requestcontext.UserID(ctx),
		Subject:   entry.ID.String(),
		Action:    string(audit.EventEmergencyBypass),
		Context:   ictx.ContextType.String(),
		Decision:  "bypass",
		Reason:    "emergency_access",
		Severity:  SeverityCritical.String(),
		RequestID: requestcontext.RequestID(ctx),
	})

	return Result{Isolated: true, CorrectedData: passed, Audit: entry}
}

// denyBypass records a bypass attempt the tier policy rejects. The check
// then proceeds down the normal validate path.
func (g *Guard) denyBypass(ctx context.Context, ictx Context) {
	if g.metrics != nil {
		g.metrics.IncrementBypassDenials()
	}
	if g.logger != nil {
		g.logger.WarnContext(ctx, "emergency bypass denied by tier policy",
			"tier", ictx.Tier.String(),
			"context", ictx.ContextType.String(),
		)
	}
	if g.security != nil {
		g.security.Emit(audit.SecurityEvent{
			Subject:           requestcontext.UserID(ctx).String(),
			Action:            string(audit.EventEmergencyBypassDeny),
			Reason:            "tier_policy",
			IP:                requestcontext.ClientIP(ctx),
			RequestID:         requestcontext.RequestID(ctx),
			DeviceFingerprint: requestcontext.DeviceFingerprint(ctx),
			Severity:          audit.SeverityWarning,
		})
	}
}

// scan walks every rule targeting the check's context and flags blocked
// fields present in the data. Only top-level keys are inspected; context
// boundaries exchange flat field maps.
func (g *Guard) scan(data map[string]any, ictx Context) []Violation {
	var violations []Violation
	for _, rule := range g.policy.Rules {
		if rule.TargetContext != ictx.ContextType {
			continue
		}
		for _, field := range rule.BlockedFields {
			if _, present := data[field]; !present {
				continue
			}
			violations = append(violations, Violation{
				Field:              field,
				Severity:           g.policy.SeverityFor(field),
				SourceContext:      rule.SourceContext,
				TargetContext:      rule.TargetContext,
				Correctable:        rule.Correctable,
				AllowedByException: ictx.EmergencyAccess && rule.Exemptible,
			})
		}
	}
	return violations
}

// correct strips correctable violations from a copy of the data. Exception-
// allowed fields stay: they were intentionally let through. Non-correctable
// fields also stay; the caller sees the violation and aborts or not.
func correct(data map[string]any, violations []Violation) (map[string]any, []string) {
	corrected := copyData(data)
	var stripped []string
	for _, v := range violations {
		if !v.Correctable || v.AllowedByException {
			continue
		}
		if _, ok := corrected[v.Field]; ok {
			delete(corrected, v.Field)
			stripped = append(stripped, v.Field)
		}
	}
	return corrected, stripped
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// record books the outcome of a non-bypass check: metrics, logs, and the
// audit pipeline. Clean passes are routine operational records; anything
// with a violation or an unvalidated context is a durable compliance record.
func (g *Guard) record(ctx context.Context, ictx Context, res Result) {
	outcome := "blocked"
	if res.Isolated {
		outcome = "isolated"
	}
	if g.metrics != nil {
		g.metrics.IncrementChecks(ictx.ContextType.String(), outcome)
		for _, v := range res.Violations {
			g.metrics.IncrementViolations(v.Severity.String())
		}
		if n := len(res.Audit.CorrectedFields); n > 0 {
			g.metrics.AddCorrections(n)
		}
	}

	if len(res.Violations) == 0 && res.Audit.ContextValidated {
		if g.ops != nil {
			g.ops.Track(audit.OpsEvent{
				Subject:   res.Audit.ID.String(),
				Action:    string(audit.EventIsolationChecked),
				Decision:  "allowed",
				RequestID: requestcontext.RequestID(ctx),
			})
		}
		return
	}

	decision := "blocked"
	switch {
	case !res.Isolated:
	case len(res.Audit.CorrectedFields) > 0:
		decision = "corrected"
	default:
		// Every violation was allowed through under an emergency exception.
		decision = "allowed"
	}

	reason := "context_not_allowed"
	severity := ""
	if worst := worstViolation(res.Violations); worst != nil {
		reason = worst.Field
		severity = worst.Severity.String()
	}

	if g.logger != nil {
		g.logger.WarnContext(ctx, "segregation violation",
			"tier", ictx.Tier.String(),
			"context", ictx.ContextType.String(),
			"violations", len(res.Violations),
			"corrected", len(res.Audit.CorrectedFields),
			"validated", res.Audit.ContextValidated,
			"isolated", res.Isolated,
		)
	}
	g.emitCompliance(ctx, audit.ComplianceEvent{
		UserID:    requestcontext.UserID(ctx),
		Subject:   res.Audit.ID.String(),
		Action:    string(audit.EventIsolationViolation),
		Context:   ictx.ContextType.String(),
		Decision:  decision,
		Reason:    reason,
		Severity:  severity,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// severityRank orders severities for picking the headline violation.
var severityRank = map[Severity]int{
	SeverityCritical: 3,
	SeverityHigh:     2,
	SeverityMedium:   1,
	SeverityLow:      0,
}

func worstViolation(violations []Violation) *Violation {
	var worst *Violation
	for i := range violations {
		if worst == nil || severityRank[violations[i].Severity] > severityRank[worst.Severity] {
			worst = &violations[i]
		}
	}
	return worst
}

// emitCompliance writes a durable audit event. The check result does not
// depend on the write: the guard keeps serving with a degraded sink, and
// the failure is logged for the pipeline's own alerting.
func (g *Guard) emitCompliance(ctx context.Context, event audit.ComplianceEvent) {
	if g.compliance == nil {
		return
	}
	if err := g.compliance.Emit(ctx, event); err != nil && g.logger != nil {
		g.logger.ErrorContext(ctx, "failed to persist isolation audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (g *Guard) startSpan(ctx context.Context, ictx Context) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "isolation.check",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("isolation.context", ictx.ContextType.String()),
			attribute.String("isolation.tier", ictx.Tier.String()),
			attribute.Bool("isolation.emergency_access", ictx.EmergencyAccess),
		),
	)
}

func finishSpan(span trace.Span, res Result) {
	span.SetAttributes(
		attribute.Bool("isolation.isolated", res.Isolated),
		attribute.Int("isolation.violations", len(res.Violations)),
	)
}
