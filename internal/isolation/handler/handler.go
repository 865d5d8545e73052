// Package handler exposes the data-segregation check over HTTP for internal
// tooling and backend services. The route is operator-gated at the router;
// nothing here assumes a patient identity on the request context.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"haven/internal/isolation"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// Checker runs one data-segregation check. It never fails; violations are
// values on the result.
type Checker interface {
	Check(ctx context.Context, data map[string]any, ictx isolation.Context) isolation.Result
}

// Handler wires the boundary-check endpoint to the isolation guard.
type Handler struct {
	checker Checker
	logger  *slog.Logger
}

// New constructs an isolation handler with its dependencies.
func New(checker Checker, logger *slog.Logger) *Handler {
	return &Handler{
		checker: checker,
		logger:  logger,
	}
}

// Register mounts the isolation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/isolation/check", h.HandleCheck)
}

// HandleCheck handles POST /isolation/check requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := h.checker.Check(ctx, req.Data, req.BoundaryContext())

	// Field names and values stay out of the log line; the audit entry on the
	// result is the durable record.
	h.logger.InfoContext(ctx, "isolation check completed",
		"request_id", requestID,
		"tier", req.Tier,
		"context_type", req.ContextType,
		"emergency_access", req.EmergencyAccess,
		"isolated", res.Isolated,
		"violations", len(res.Violations),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, res)
}
