package audit

import (
	"time"

	id "haven/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: crisis detections, escalations, emergency bypass grants,
	// segregation violations.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: auth failures, revocations, denied bypass attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: met guarantees, allowed isolation checks, routine reads.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Events never carry questionnaire item responses or score totals; clinical
// content stays in the clinical store. Decision, Reason, and Severity are the
// only clinical outcomes recorded, and they are category labels, not data.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string // entity acted on (assessment ID, session ID, context name)
	Action    string
	// Instrument labels the questionnaire involved, when one is.
	Instrument string
	// Context is the access context for segregation events (clinical, payment,
	// emergency).
	Context string
	// Decision is the outcome: triggered, allowed, denied, bypass, met, missed.
	Decision string
	// Reason says why: crisis rule name, violated field, miss cause.
	Reason   string
	Severity string // clinical band or violation severity, as a label
	// IP is the client address for security events; empty elsewhere.
	IP        string
	RequestID string // correlation ID from HTTP request context
	// ActorID tracks who performed the action when different from UserID.
	// Used for operator actions such as emergency bypass grants.
	ActorID string
	// DeviceFingerprint is the pre-hashed device identity for security
	// forensics. Never a raw User-Agent or install ID.
	DeviceFingerprint string
}

type AuditEvent string

const (
	// Assessment events
	EventAssessmentSubmitted AuditEvent = "assessment_submitted"
	EventAssessmentRead      AuditEvent = "assessment_read"
	EventAssessmentRejected  AuditEvent = "assessment_rejected"

	// Crisis events
	EventCrisisDetected  AuditEvent = "crisis_detected"
	EventCrisisEscalated AuditEvent = "crisis_escalated"

	// Guarantee events
	EventGuaranteeMet        AuditEvent = "guarantee_met"
	EventFallbackEngaged     AuditEvent = "fallback_engaged"
	EventDegradationReported AuditEvent = "degradation_reported"

	// Segregation events
	EventIsolationChecked     AuditEvent = "isolation_checked"
	EventIsolationViolation   AuditEvent = "isolation_violation"
	EventEmergencyBypass      AuditEvent = "emergency_bypass_granted"
	EventEmergencyBypassDeny  AuditEvent = "emergency_bypass_denied"

	// Auth events
	EventAuthFailed      AuditEvent = "auth_failed"
	EventSessionRevoked  AuditEvent = "session_revoked"
	EventSessionsRevoked AuditEvent = "sessions_revoked"

	// Data lifecycle events
	EventUserDataPurged AuditEvent = "user_data_purged"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventAssessmentSubmitted:  CategoryCompliance,
	EventCrisisDetected:       CategoryCompliance,
	EventCrisisEscalated:      CategoryCompliance,
	EventDegradationReported:  CategoryCompliance,
	EventIsolationViolation:   CategoryCompliance,
	EventEmergencyBypass:      CategoryCompliance,
	EventUserDataPurged:       CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventAuthFailed:          CategorySecurity,
	EventSessionRevoked:      CategorySecurity,
	EventSessionsRevoked:     CategorySecurity,
	EventEmergencyBypassDeny: CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventAssessmentRead:  CategoryOperations,
	EventAssessmentRejected: CategoryOperations,
	EventGuaranteeMet:    CategoryOperations,
	EventFallbackEngaged: CategoryOperations,
	EventIsolationChecked: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// -----------------------------------------------------------------------------
// Right-sized event types for tri-publisher architecture
// -----------------------------------------------------------------------------

// ComplianceEvent captures regulatory-significant actions requiring guaranteed
// persistence. Crisis detections, escalations, bypass grants, and segregation
// violations all flow through here with fail-closed semantics.
type ComplianceEvent struct {
	Timestamp  time.Time // When the event occurred (set automatically if zero)
	UserID     id.UserID // The user affected (required)
	Subject    string    // Human-readable subject identifier
	Action     string    // The action taken (e.g., "crisis_detected")
	Instrument string    // Questionnaire involved, when applicable
	Context    string    // Access context for segregation events
	Decision   string    // Outcome of the action (e.g., "triggered", "bypass")
	Reason     string    // Rule or field that decided the outcome
	Severity   string    // Clinical band or violation severity label
	RequestID  string    // Correlation ID for request tracing
	ActorID    string    // Operator who performed the action (if different from UserID)
}

// Category returns CategoryCompliance (always).
func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the generic Event type used by stores.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:   CategoryCompliance,
		Timestamp:  e.Timestamp,
		UserID:     e.UserID,
		Subject:    e.Subject,
		Action:     e.Action,
		Instrument: e.Instrument,
		Context:    e.Context,
		Decision:   e.Decision,
		Reason:     e.Reason,
		Severity:   e.Severity,
		RequestID:  e.RequestID,
		ActorID:    e.ActorID,
	}
}

// SecurityEvent captures security-relevant actions for SIEM and alerting.
// Events are processed asynchronously with buffering and retry.
type SecurityEvent struct {
	Timestamp         time.Time // When the event occurred (set automatically if zero)
	Subject           string    // Entity involved (user_id, IP, session_id)
	Action            string    // Security action (e.g., "auth_failed")
	Reason            string    // Why this happened (e.g., "invalid_token")
	IP                string    // Client IP address (critical for security forensics)
	RequestID         string    // Correlation ID
	ActorID           string    // Actor if different from subject
	DeviceFingerprint string    // Hashed device identity
	Severity          Severity  // "info", "warning", "critical" for SIEM routing
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Category returns CategorySecurity (always).
func (e SecurityEvent) Category() EventCategory { return CategorySecurity }

// ToEvent converts to the generic Event type used by stores.
func (e SecurityEvent) ToEvent() Event {
	return Event{
		Category:          CategorySecurity,
		Timestamp:         e.Timestamp,
		Subject:           e.Subject,
		Action:            e.Action,
		Reason:            e.Reason,
		Severity:          string(e.Severity),
		IP:                e.IP,
		RequestID:         e.RequestID,
		ActorID:           e.ActorID,
		DeviceFingerprint: e.DeviceFingerprint,
	}
}

// OpsEvent captures operational events with minimal overhead.
// Events are fire-and-forget with optional sampling.
type OpsEvent struct {
	Timestamp time.Time // When the event occurred (set automatically if zero)
	Subject   string    // Entity involved
	Action    string    // Operational action (e.g., "guarantee_met")
	Decision  string    // Outcome label, when one applies
	RequestID string    // Correlation ID
}

// Category returns CategoryOperations (always).
func (e OpsEvent) Category() EventCategory { return CategoryOperations }

// ToEvent converts to the generic Event type used by stores.
func (e OpsEvent) ToEvent() Event {
	return Event{
		Category:  CategoryOperations,
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		Decision:  e.Decision,
		RequestID: e.RequestID,
	}
}
