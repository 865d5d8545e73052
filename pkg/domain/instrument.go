package domain

import dErrors "haven/pkg/domain-errors"

// Instrument is a domain value that identifies a clinical questionnaire.
// Invariant: the value must be one of the supported instruments.
//
// Usage: construct via ParseInstrument at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Instrument string

// Supported instruments. Scoring and crisis rules are defined per instrument,
// so an unknown value must be rejected before it reaches either.
const (
	InstrumentPHQ9 Instrument = "phq9"
	InstrumentGAD7 Instrument = "gad7"
)

// validInstruments is the single source of truth for valid instruments.
var validInstruments = map[Instrument]bool{
	InstrumentPHQ9: true,
	InstrumentGAD7: true,
}

// ParseInstrument constructs an Instrument from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseInstrument(s string) (Instrument, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "instrument cannot be empty")
	}
	in := Instrument(s)
	if !in.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported instrument: "+s)
	}
	return in, nil
}

// IsValid reports whether the instrument is on the allowlist.
func (in Instrument) IsValid() bool {
	return validInstruments[in]
}

// String returns the wire representation of the instrument.
func (in Instrument) String() string {
	return string(in)
}

// ItemCount returns the number of questionnaire items the instrument defines.
// Unknown instruments report zero items.
func (in Instrument) ItemCount() int {
	switch in {
	case InstrumentPHQ9:
		return 9
	case InstrumentGAD7:
		return 7
	default:
		return 0
	}
}
