package version

import (
	"log/slog"
	"net/http"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// ValidateTokenVersion creates middleware that validates the token's API version
// against the route's API version.
//
// Forward compatibility rules (v1 tokens work on v2 routes):
//   - routeVersion.IsAtLeast(tokenVersion) must be true
//   - v1 token on v2 route: OK (route v2 >= token v1)
//   - v2 token on v1 route: REJECTED (route v1 < token v2)
//
// This middleware must run AFTER:
//  1. ExtractVersion middleware (sets route version in context)
//  2. Auth middleware (sets token version in context)
func ValidateTokenVersion(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Route version comes from ExtractVersion; absence is a wiring bug.
			routeVersion := requestcontext.APIVersion(ctx)
			if routeVersion.IsNil() {
				logger.ErrorContext(ctx, "version validation failed: route version not set",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "route version not configured"))
				return
			}

			// Token version comes from the auth middleware; legacy tokens
			// without the claim are treated as v1.
			tokenVersion := requestcontext.TokenAPIVersion(ctx)
			if tokenVersion.IsNil() {
				tokenVersion = id.APIVersionV1
			}

			// Route version must be >= token version. This allows v1 tokens
			// to keep working on newer routes but rejects newer tokens replayed
			// against older endpoint versions.
			if !routeVersion.IsAtLeast(tokenVersion) {
				logger.WarnContext(ctx, "cross-version token replay rejected",
					"token_version", tokenVersion.String(),
					"route_version", routeVersion.String(),
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx).String(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "token API version not compatible with this endpoint version"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
