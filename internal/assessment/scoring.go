package assessment

import (
	"fmt"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
)

// Item responses on both instruments share the same range.
const (
	MinItemValue = 0
	MaxItemValue = 3
)

// WrongAnswerCountError reports an answer vector whose length does not match
// the instrument's item count.
type WrongAnswerCountError struct {
	Instrument id.Instrument
	Got        int
	Want       int
}

func (e *WrongAnswerCountError) Error() string {
	return fmt.Sprintf("%s requires %d answers, got %d", e.Instrument, e.Want, e.Got)
}

// AnswerOutOfRangeError reports a single item response outside the valid
// range. Index is zero-based. Out-of-range responses are rejected, never
// clamped: silently coercing an answer would alter the clinical score.
type AnswerOutOfRangeError struct {
	Index int
	Value int
}

func (e *AnswerOutOfRangeError) Error() string {
	return fmt.Sprintf("answer %d out of range [%d,%d] at index %d", e.Value, MinItemValue, MaxItemValue, e.Index)
}

// Validate checks an answer vector against the instrument's shape, computes
// the total, and assigns the severity band. Pure and deterministic: no I/O,
// no clock, same output for same input.
//
// Errors carry CodeValidation and unwrap to *WrongAnswerCountError or
// *AnswerOutOfRangeError so callers can report the exact defect. The first
// out-of-range index wins when several items are invalid.
func Validate(instrument id.Instrument, answers []int) (ScoreResult, error) {
	want := instrument.ItemCount()
	if want == 0 {
		return ScoreResult{}, dErrors.New(dErrors.CodeInvalidInput, "unsupported instrument: "+instrument.String())
	}
	if len(answers) != want {
		return ScoreResult{}, dErrors.Wrap(
			&WrongAnswerCountError{Instrument: instrument, Got: len(answers), Want: want},
			dErrors.CodeValidation, "wrong answer count",
		)
	}

	total := 0
	for i, v := range answers {
		if v < MinItemValue || v > MaxItemValue {
			return ScoreResult{}, dErrors.Wrap(
				&AnswerOutOfRangeError{Index: i, Value: v},
				dErrors.CodeValidation, "answer out of range",
			)
		}
		total += v
	}

	// Copy so the result cannot be mutated through the caller's slice.
	owned := make([]int, len(answers))
	copy(owned, answers)

	return ScoreResult{
		Instrument: instrument,
		Answers:    owned,
		Total:      total,
		Severity:   severityFor(instrument, total),
	}, nil
}

// severityFor maps a total to its severity band. Bands are inclusive on both
// ends and fixed per instrument:
//
//	PHQ-9: 0–4 minimal, 5–9 mild, 10–14 moderate, 15–19 moderately severe, 20–27 severe
//	GAD-7: 0–4 minimal, 5–9 mild, 10–14 moderate, 15–21 severe
//
// The caller guarantees total is within the instrument's reachable range.
func severityFor(instrument id.Instrument, total int) Severity {
	switch {
	case total <= 4:
		return SeverityMinimal
	case total <= 9:
		return SeverityMild
	case total <= 14:
		return SeverityModerate
	}
	if instrument == id.InstrumentPHQ9 && total <= 19 {
		return SeverityModeratelySevere
	}
	return SeveritySevere
}
