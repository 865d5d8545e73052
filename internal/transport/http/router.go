// Package httptransport assembles the HTTP surface of the service: the
// middleware chains, the patient-facing v1 API, and the operator endpoints.
// Handlers own their routes via Register; this package owns where they mount
// and which guards sit in front of them.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assessmentHandler "haven/internal/assessment/handler"
	isolationHandler "haven/internal/isolation/handler"
	"haven/internal/platform/metrics"
	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/platform/middleware/admin"
	authmw "haven/pkg/platform/middleware/auth"
	"haven/pkg/platform/middleware/device"
	"haven/pkg/platform/middleware/metadata"
	"haven/pkg/platform/middleware/recovery"
	"haven/pkg/platform/middleware/request"
	"haven/pkg/platform/middleware/requesttime"
	"haven/pkg/platform/middleware/version"
)

// Deps carries everything the router mounts. HTTPMetrics may be nil, which
// disables request instrumentation; everything else is required.
type Deps struct {
	Logger      *slog.Logger
	HTTPMetrics *metrics.HTTP

	Assessments *assessmentHandler.Handler
	Isolation   *isolationHandler.Handler
	Operator    *OperatorHandler

	JWTValidator authmw.JWTValidator
	Revocations  authmw.TokenRevocationChecker

	// AdminToken guards the operator and internal routes. When empty those
	// routes stay mounted but reject every request.
	AdminToken string
}

// New assembles the full route tree.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(recovery.Middleware(deps.Logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "resource not found"))
	})

	// Liveness and scrape endpoints sit outside the request middleware so a
	// probe never depends on it.
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(app chi.Router) {
		if deps.HTTPMetrics != nil {
			app.Use(deps.HTTPMetrics.Middleware)
		}
		app.Use(request.Middleware)
		app.Use(requesttime.Middleware)
		app.Use(metadata.ClientMetadata)
		app.Use(device.Fingerprint)

		app.Route("/v1", func(v1 chi.Router) {
			v1.Use(version.ExtractVersion(id.APIVersionV1))

			// Patient-facing API: bearer token, revocation check, version
			// compatibility.
			v1.Group(func(api chi.Router) {
				api.Use(authmw.RequireAuth(deps.JWTValidator, deps.Revocations, deps.Logger))
				api.Use(version.ValidateTokenVersion(deps.Logger))
				deps.Assessments.Register(api)
			})

			// The boundary check is for backend services and tooling, not
			// the patient app.
			v1.Group(func(internalAPI chi.Router) {
				internalAPI.Use(admin.RequireAdminToken(deps.AdminToken, deps.Logger))
				deps.Isolation.Register(internalAPI)
			})
		})

		app.Route("/admin", func(ops chi.Router) {
			ops.Use(admin.RequireAdminToken(deps.AdminToken, deps.Logger))
			deps.Operator.Register(ops)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
