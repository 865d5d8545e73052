package handler

import (
	"strings"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
)

// maxAnswerVector bounds the decoded answer slice before the scoring layer
// sees it. Both instruments are single-digit item counts; anything larger is
// malformed input, not a questionnaire.
const maxAnswerVector = 32

// SubmitAssessmentRequest is the HTTP request body for POST /assessments.
type SubmitAssessmentRequest struct {
	Instrument string `json:"instrument"`
	Answers    []int  `json:"answers"`

	// Parsed values (populated by Validate)
	parsedInstrument id.Instrument
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitAssessmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Instrument = strings.ToLower(strings.TrimSpace(r.Instrument))
	if r.Instrument == "" {
		return dErrors.New(dErrors.CodeValidation, "instrument is required")
	}
	instrument, err := id.ParseInstrument(r.Instrument)
	if err != nil {
		return err
	}
	r.parsedInstrument = instrument

	if len(r.Answers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "answers are required")
	}
	if len(r.Answers) > maxAnswerVector {
		return dErrors.New(dErrors.CodeValidation, "too many answers")
	}

	return nil
}

// ParsedInstrument returns the validated instrument.
func (r *SubmitAssessmentRequest) ParsedInstrument() id.Instrument {
	return r.parsedInstrument
}
