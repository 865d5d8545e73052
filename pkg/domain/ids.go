// Package domain holds the identifier and value types shared across the
// clinical safety layer. IDs are distinct types over uuid.UUID so that a
// patient identifier can never be passed where a session or assessment
// identifier is expected; the compiler enforces the distinction.
//
// Construct IDs from external input with the Parse* functions, which reject
// empty, malformed, and nil UUIDs. Direct conversion bypasses validation and
// is reserved for code that already holds a trusted uuid.UUID.
package domain

import (
	"github.com/google/uuid"

	dErrors "haven/pkg/domain-errors"
)

// UserID identifies a patient account.
type UserID uuid.UUID

// SessionID identifies an authenticated app session.
type SessionID uuid.UUID

// AssessmentID identifies a single submitted questionnaire response set.
type AssessmentID uuid.UUID

// RequestID identifies one guarantee-enforced operation end to end.
type RequestID uuid.UUID

// parseID validates the shared invariant for all ID types: the input must be
// a well-formed, non-nil UUID string.
func parseID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be the nil uuid")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseID(s, "user")
	return UserID(u), err
}

// ParseSessionID constructs a SessionID from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseID(s, "session")
	return SessionID(u), err
}

// ParseAssessmentID constructs an AssessmentID from external input.
func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseID(s, "assessment")
	return AssessmentID(u), err
}

// ParseRequestID constructs a RequestID from external input.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseID(s, "request")
	return RequestID(u), err
}

// NewUserID returns a freshly generated UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a freshly generated SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAssessmentID returns a freshly generated AssessmentID.
func NewAssessmentID() AssessmentID { return AssessmentID(uuid.New()) }

// NewRequestID returns a freshly generated RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
