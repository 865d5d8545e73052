// Package admin gates operator-only routes (audit queries, degradation
// reports) behind a shared token. These routes are reachable only from the
// internal network; the token is a second layer, not the only one.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// HeaderAdminToken carries the operator token.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken rejects requests whose operator token does not match.
// An unset expected token disables the routes it guards rather than opening
// them.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
