// Package handler wires the assessment endpoints to the submission workflow
// service. Authentication and request identity are read from the request
// context; the middleware chain owns putting them there.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"haven/internal/assessment"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// Service defines the interface for assessment operations.
type Service interface {
	Submit(ctx context.Context, userID id.UserID, instrument id.Instrument, answers []int) (*assessment.Record, error)
	History(ctx context.Context, userID id.UserID) ([]assessment.Record, error)
}

// Handler wires assessment endpoints to the assessment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an assessment handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts assessment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assessments", h.HandleSubmit)
	r.Get("/assessments", h.HandleHistory)
}

// HandleSubmit handles POST /assessments requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitAssessmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, userID, req.ParsedInstrument(), req.Answers)
	if err != nil {
		h.logger.WarnContext(ctx, "assessment submission rejected",
			"request_id", requestID,
			"user_id", userID,
			"instrument", req.Instrument,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assessment submitted",
		"request_id", requestID,
		"user_id", userID,
		"instrument", req.Instrument,
		"severity", record.Result.Severity.String(),
		"crisis", record.Crisis.Triggered,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromRecord(record))
}

// HandleHistory handles GET /assessments requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	records, err := h.service.History(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "assessment history read failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}
