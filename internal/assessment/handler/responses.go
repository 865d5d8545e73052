package handler

import (
	"time"

	"haven/internal/assessment"
)

// AssessmentResponse is the HTTP shape of one scored submission. It returns
// the caller's own clinical data; answers are echoed so the client can
// render item-level history without a second round trip.
type AssessmentResponse struct {
	ID          string         `json:"id"`
	Instrument  string         `json:"instrument"`
	Answers     []int          `json:"answers"`
	Total       int            `json:"total"`
	Severity    string         `json:"severity"`
	Crisis      CrisisResponse `json:"crisis"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// CrisisResponse is the crisis portion of the response.
type CrisisResponse struct {
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason,omitempty"`
}

// HistoryResponse is the HTTP response for GET /assessments.
type HistoryResponse struct {
	Assessments []AssessmentResponse `json:"assessments"`
	Count       int                  `json:"count"`
}

// FromRecord converts a domain record to an HTTP response.
func FromRecord(record *assessment.Record) *AssessmentResponse {
	return &AssessmentResponse{
		ID:         record.ID.String(),
		Instrument: record.Result.Instrument.String(),
		Answers:    record.Result.Answers,
		Total:      record.Result.Total,
		Severity:   record.Result.Severity.String(),
		Crisis: CrisisResponse{
			Triggered: record.Crisis.Triggered,
			Reason:    record.Crisis.Reason.String(),
		},
		SubmittedAt: record.SubmittedAt,
	}
}

// FromRecords converts a history listing to an HTTP response. The slice is
// never null on the wire, even for an empty history.
func FromRecords(records []assessment.Record) *HistoryResponse {
	out := make([]AssessmentResponse, 0, len(records))
	for i := range records {
		out = append(out, *FromRecord(&records[i]))
	}
	return &HistoryResponse{
		Assessments: out,
		Count:       len(out),
	}
}
