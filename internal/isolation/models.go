// Package isolation guards the boundary between clinical and payment data
// contexts. Data crossing a boundary is checked against segregation rules:
// blocked fields become violations, correctable ones are stripped from a
// copy of the data, and every check produces exactly one audit entry no
// matter which path it takes. An emergency bypass exists for active crisis
// flows and is itself audited.
//
// Checks are independent per call and keep no cross-call state. The
// segregation policy is loaded once at startup and read-only afterwards.
package isolation

import (
	"time"

	"github.com/google/uuid"

	dErrors "haven/pkg/domain-errors"
)

// ContextType identifies the logical data domain a piece of data is being
// processed under. Segregation rules are keyed by the context they protect.
type ContextType string

const (
	// ContextTherapeutic covers session content, journals, and other
	// free-form clinical material.
	ContextTherapeutic ContextType = "therapeutic"

	// ContextPayment covers billing and payment instrument handling.
	ContextPayment ContextType = "payment"

	// ContextAssessment covers questionnaire scoring and score history.
	ContextAssessment ContextType = "assessment"

	// ContextCrisis covers active crisis intervention flows.
	ContextCrisis ContextType = "crisis"

	// ContextSystem covers internal maintenance and identity verification.
	ContextSystem ContextType = "system"
)

// ParseContextType converts external input into a ContextType.
func ParseContextType(raw string) (ContextType, error) {
	ct := ContextType(raw)
	if !ct.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown context type: %q", raw)
	}
	return ct, nil
}

func (c ContextType) IsValid() bool {
	switch c {
	case ContextTherapeutic, ContextPayment, ContextAssessment, ContextCrisis, ContextSystem:
		return true
	}
	return false
}

func (c ContextType) String() string { return string(c) }

// SubscriptionTier is the product tier the caller is operating under. Each
// tier has an allow-list of contexts it may process data in.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// ParseSubscriptionTier converts external input into a SubscriptionTier.
func ParseSubscriptionTier(raw string) (SubscriptionTier, error) {
	t := SubscriptionTier(raw)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown subscription tier: %q", raw)
	}
	return t, nil
}

func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierFree, TierPremium, TierEnterprise:
		return true
	}
	return false
}

func (t SubscriptionTier) String() string { return string(t) }

// Severity grades how sensitive a leaked field is. It labels violations,
// metrics, and audit entries; it does not change whether a field is blocked.
type Severity string

const (
	// SeverityCritical covers payment instruments, identity documents, and
	// clinical content. A leak at this grade is a reportable incident.
	SeverityCritical Severity = "critical"

	// SeverityHigh covers contact and billing details.
	SeverityHigh Severity = "high"

	// SeverityMedium covers generic personal data.
	SeverityMedium Severity = "medium"

	// SeverityLow covers everything not otherwise classified.
	SeverityLow Severity = "low"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }

// Context describes the boundary a single check runs against. It is
// constructed per call, read-only, and never shared across goroutines.
type Context struct {
	Tier            SubscriptionTier `json:"tier"`
	ContextType     ContextType      `json:"context_type"`
	EmergencyAccess bool             `json:"emergency_access"`
}

// Violation records one blocked field found during a scan. Correctable
// violations are resolved by stripping the field from the corrected copy;
// AllowedByException marks fields intentionally let through under an active
// emergency exception, which are never stripped.
type Violation struct {
	Field              string      `json:"field"`
	Severity           Severity    `json:"severity"`
	SourceContext      ContextType `json:"source_context"`
	TargetContext      ContextType `json:"target_context"`
	Correctable        bool        `json:"correctable"`
	AllowedByException bool        `json:"allowed_by_exception,omitempty"`
}

// Remaining reports whether the violation is still unresolved after the
// correction pass: neither stripped nor explicitly allowed through.
func (v Violation) Remaining() bool {
	return !v.Correctable && !v.AllowedByException
}

// ComplianceStatus is the audit-facing verdict of a single check.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "compliant"
	StatusNonCompliant ComplianceStatus = "non_compliant"
)

// AuditEntry is the per-check record handed to the audit pipeline. Exactly
// one is produced per Check call, including the bypass path.
type AuditEntry struct {
	ID               uuid.UUID        `json:"id"`
	At               time.Time        `json:"at"`
	Tier             SubscriptionTier `json:"tier"`
	ContextType      ContextType      `json:"context_type"`
	EmergencyAccess  bool             `json:"emergency_access"`
	ContextValidated bool             `json:"context_validated"`
	ViolationCount   int              `json:"violation_count"`
	// CorrectedFields lists fields stripped during the correction pass.
	CorrectedFields []string `json:"corrected_fields,omitempty"`
	// StrippedFields lists never-bypass fields removed on the bypass path.
	StrippedFields []string         `json:"stripped_fields,omitempty"`
	Status         ComplianceStatus `json:"status"`
}

// Result is the outcome of one isolation check. Isolated is true only when
// the context was validated and no violation remains unresolved, or when the
// emergency bypass path was taken. CorrectedData is always a copy; the input
// map is never mutated.
type Result struct {
	Isolated      bool           `json:"isolated"`
	Violations    []Violation    `json:"violations,omitempty"`
	CorrectedData map[string]any `json:"corrected_data"`
	Audit         AuditEntry     `json:"audit_entry"`
}
