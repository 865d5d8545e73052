package handler

import (
	"strings"

	"haven/internal/isolation"
	dErrors "haven/pkg/domain-errors"
)

// CheckRequest is the HTTP request body for POST /isolation/check: the data
// about to cross a context boundary, and the boundary it crosses.
type CheckRequest struct {
	Tier            string         `json:"tier"`
	ContextType     string         `json:"context_type"`
	EmergencyAccess bool           `json:"emergency_access"`
	Data            map[string]any `json:"data"`

	// Parsed values (populated by Validate)
	parsedTier    isolation.SubscriptionTier
	parsedContext isolation.ContextType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CheckRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Tier = strings.ToLower(strings.TrimSpace(r.Tier))
	if r.Tier == "" {
		return dErrors.New(dErrors.CodeValidation, "tier is required")
	}
	tier, err := isolation.ParseSubscriptionTier(r.Tier)
	if err != nil {
		return err
	}
	r.parsedTier = tier

	r.ContextType = strings.ToLower(strings.TrimSpace(r.ContextType))
	if r.ContextType == "" {
		return dErrors.New(dErrors.CodeValidation, "context_type is required")
	}
	ct, err := isolation.ParseContextType(r.ContextType)
	if err != nil {
		return err
	}
	r.parsedContext = ct

	// An absent data object means an empty payload, not an invalid request.
	if r.Data == nil {
		r.Data = map[string]any{}
	}

	return nil
}

// BoundaryContext returns the validated isolation context.
func (r *CheckRequest) BoundaryContext() isolation.Context {
	return isolation.Context{
		Tier:            r.parsedTier,
		ContextType:     r.parsedContext,
		EmergencyAccess: r.EmergencyAccess,
	}
}
