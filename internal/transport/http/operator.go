package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"haven/internal/auth"
	"haven/internal/sla"
	dErrors "haven/pkg/domain-errors"
	audit "haven/pkg/platform/audit"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// SLAReporter exposes the enforcement record the degradation report is built
// from.
type SLAReporter interface {
	History() *sla.History
	CrisisDegraded() bool
}

// TokenInspector parses and verifies a session token so a revocation request
// can be resolved to its JTI and remaining lifetime.
type TokenInspector interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// TokenRevoker places a JTI on the revocation list for the given lifetime.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// SecurityPublisher records revocations for SIEM routing.
type SecurityPublisher interface {
	Emit(event audit.SecurityEvent)
}

// OperatorHandler serves the operator endpoints mounted under /admin.
type OperatorHandler struct {
	sla      SLAReporter
	tokens   TokenInspector
	revoker  TokenRevoker
	security SecurityPublisher
	logger   *slog.Logger
}

// NewOperatorHandler constructs the operator handler. security may be nil,
// which skips audit emission.
func NewOperatorHandler(
	slaReporter SLAReporter,
	tokens TokenInspector,
	revoker TokenRevoker,
	security SecurityPublisher,
	logger *slog.Logger) *OperatorHandler {
	return &OperatorHandler{
		sla:      slaReporter,
		tokens:   tokens,
		revoker:  revoker,
		security: security,
		logger:   logger,
	}
}

// Register mounts the operator endpoints on the router.
func (h *OperatorHandler) Register(r chi.Router) {
	r.Get("/sla/history", h.HandleSLAHistory)
	r.Post("/revocations", h.HandleRevokeToken)
}

// SLAHistoryEntry is one enforcement run on the wire.
type SLAHistoryEntry struct {
	Tier         string    `json:"tier"`
	Source       string    `json:"source"`
	ElapsedMS    float64   `json:"elapsed_ms"`
	MetSLA       bool      `json:"met_sla"`
	UsedFallback bool      `json:"used_fallback"`
	At           time.Time `json:"at"`
}

// SLAHistoryResponse is the wire shape for GET /admin/sla/history.
type SLAHistoryResponse struct {
	CrisisDegraded bool              `json:"crisis_degraded"`
	Dropped        uint64            `json:"dropped"`
	Count          int               `json:"count"`
	Entries        []SLAHistoryEntry `json:"entries"`
}

// HandleSLAHistory handles GET /sla/history requests: the recorded
// enforcement runs plus whether the crisis path is currently degraded.
func (h *OperatorHandler) HandleSLAHistory(w http.ResponseWriter, r *http.Request) {
	history := h.sla.History()
	snapshot := history.Snapshot()

	entries := make([]SLAHistoryEntry, 0, len(snapshot))
	for _, e := range snapshot {
		entries = append(entries, SLAHistoryEntry{
			Tier:         e.Tier.String(),
			Source:       string(e.Source),
			ElapsedMS:    float64(e.Elapsed.Nanoseconds()) / 1e6,
			MetSLA:       e.MetSLA,
			UsedFallback: e.UsedFallback,
			At:           e.At,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, SLAHistoryResponse{
		CrisisDegraded: h.sla.CrisisDegraded(),
		Dropped:        history.Dropped(),
		Count:          len(entries),
		Entries:        entries,
	})
}

// RevokeTokenRequest is the HTTP request body for POST /revocations. Exactly
// one of token or jti identifies the session to cut off. The jti form is for
// incident response when only the identifier is known, and needs an explicit
// lifetime because the token itself is not at hand.
type RevokeTokenRequest struct {
	Token      string `json:"token,omitempty"`
	JTI        string `json:"jti,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RevokeTokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Token = strings.TrimSpace(r.Token)
	r.JTI = strings.TrimSpace(r.JTI)

	if (r.Token == "") == (r.JTI == "") {
		return dErrors.New(dErrors.CodeValidation, "exactly one of token or jti is required")
	}
	if r.JTI != "" && r.TTLSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be positive when revoking by jti")
	}
	return nil
}

// HandleRevokeToken handles POST /revocations requests. An expired token is
// a no-op success: it can no longer authenticate, so there is nothing to
// place on the list.
func (h *OperatorHandler) HandleRevokeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RevokeTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	jti := req.JTI
	subject := req.JTI
	ttl := time.Duration(req.TTLSeconds) * time.Second

	if req.Token != "" {
		claims, err := h.tokens.ValidateToken(req.Token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				h.logger.InfoContext(ctx, "revocation skipped for expired token",
					"request_id", requestID,
				)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.logger.WarnContext(ctx, "revocation rejected for invalid token",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token is not a valid session token"))
			return
		}

		jti = claims.ID
		subject = claims.UserID
		ttl = time.Until(claims.ExpiresAt.Time)
		if ttl <= 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	if err := h.revoker.Revoke(ctx, jti, ttl); err != nil {
		h.logger.ErrorContext(ctx, "token revocation failed",
			"request_id", requestID,
			"jti", jti,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not persist revocation"))
		return
	}

	if h.security != nil {
		h.security.Emit(audit.SecurityEvent{
			Subject:   subject,
			Action:    string(audit.EventSessionRevoked),
			Reason:    "operator_revocation",
			IP:        requestcontext.ClientIP(ctx),
			RequestID: requestID,
			Severity:  audit.SeverityWarning,
		})
	}

	h.logger.InfoContext(ctx, "session token revoked",
		"request_id", requestID,
		"jti", jti,
		"ttl_seconds", int64(ttl.Seconds()),
	)

	w.WriteHeader(http.StatusNoContent)
}
