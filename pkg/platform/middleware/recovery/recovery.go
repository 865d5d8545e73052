// Package recovery converts handler panics into JSON 500 responses. A panic
// on one request goroutine must not take the process down with it.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// Middleware recovers panics from downstream handlers, logs the stack, and
// answers with the standard internal error body.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http uses this sentinel to abort a response cleanly.
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "handler panic recovered",
					"request_id", requestcontext.RequestID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
