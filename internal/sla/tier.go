// Package sla enforces fixed wall-clock guarantees around operations. An
// operation runs under a named tier; if it cannot finish inside the tier's
// budget the enforcer degrades to a caller-supplied fallback, and failing
// that to a typed safe default. Callers always get an outcome, never an
// error and never a panic.
package sla

import (
	"time"

	dErrors "haven/pkg/domain-errors"
)

// Tier is a named latency budget class. The set is closed and each tier's
// deadline is a constant: budgets are clinical guarantees, not tunables.
type Tier string

const (
	// TierCrisis covers intervention paths after a crisis signal. The budget
	// is wide enough for one storage round trip plus notification dispatch.
	TierCrisis Tier = "crisis"
	// TierAssessment covers scoring and persistence of a submission. The
	// tightest budget: scoring is pure computation plus one write.
	TierAssessment Tier = "assessment"
	// TierTherapeutic covers interactive therapeutic content loads.
	TierTherapeutic Tier = "therapeutic"
	// TierStandard covers everything else.
	TierStandard Tier = "standard"
)

// Fixed per-tier budgets.
const (
	crisisDeadline      = 200 * time.Millisecond
	assessmentDeadline  = 50 * time.Millisecond
	therapeuticDeadline = 100 * time.Millisecond
	standardDeadline    = 200 * time.Millisecond
)

// ParseTier constructs a Tier from external input.
//
// Errors: CodeInvalidInput when the value is empty or not a known tier.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tier cannot be empty")
	}
	t := Tier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown tier: "+s)
	}
	return t, nil
}

// IsValid reports whether the tier is one of the closed set.
func (t Tier) IsValid() bool {
	switch t {
	case TierCrisis, TierAssessment, TierTherapeutic, TierStandard:
		return true
	}
	return false
}

// String returns the wire representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Deadline returns the tier's fixed wall-clock budget. Unknown tiers get the
// standard budget so a miswired caller still runs under a guarantee.
func (t Tier) Deadline() time.Duration {
	switch t {
	case TierCrisis:
		return crisisDeadline
	case TierAssessment:
		return assessmentDeadline
	case TierTherapeutic:
		return therapeuticDeadline
	default:
		return standardDeadline
	}
}
