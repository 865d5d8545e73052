// Package assessment implements deterministic questionnaire scoring and
// crisis detection. Scoring and detection are pure functions over validated
// inputs; the submission workflow around them lives in the service
// subpackage.
package assessment

import (
	"time"

	id "haven/pkg/domain"
)

// Severity is the clinical severity band derived from a total score. Bands
// are fixed per instrument and inclusive at both ends; see severityFor.
type Severity string

const (
	SeverityMinimal          Severity = "minimal"
	SeverityMild             Severity = "mild"
	SeverityModerate         Severity = "moderate"
	SeverityModeratelySevere Severity = "moderately_severe"
	SeveritySevere           Severity = "severe"
)

// String returns the wire representation of the severity band.
func (s Severity) String() string {
	return string(s)
}

// CrisisReason identifies which detection rule produced a crisis signal.
type CrisisReason string

const (
	// ReasonSuicidalIdeationItem fires on the PHQ-9 ninth item regardless of
	// total score. It takes precedence when both rules match.
	ReasonSuicidalIdeationItem CrisisReason = "suicidal_ideation_item"
	// ReasonScoreThreshold fires on instrument-specific total-score cutoffs.
	ReasonScoreThreshold CrisisReason = "score_threshold"
)

// String returns the wire representation of the crisis reason.
func (r CrisisReason) String() string {
	return string(r)
}

// ScoreResult is a validated, scored questionnaire response. Build one only
// through Validate; a result is immutable once built and a new submission
// always produces a new result. Answers is owned by the result and callers
// must not mutate it.
type ScoreResult struct {
	Instrument id.Instrument `json:"instrument"`
	Answers    []int         `json:"answers"`
	Total      int           `json:"total"`
	Severity   Severity      `json:"severity"`
}

// CrisisSignal is the outcome of applying the crisis rules to exactly one
// ScoreResult. Triggered and Reason are set together; Source carries the
// result the rules were evaluated against.
type CrisisSignal struct {
	Triggered bool         `json:"triggered"`
	Reason    CrisisReason `json:"reason,omitempty"`
	Source    ScoreResult  `json:"source"`
}

// Record is one submitted assessment as it appears in a user's history.
type Record struct {
	ID          id.AssessmentID
	UserID      id.UserID
	Result      ScoreResult
	Crisis      CrisisSignal
	SubmittedAt time.Time
}
