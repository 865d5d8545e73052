// Package request provides middleware that assigns every request an ID.
// The ID ties handler logs, audit events, and guarantee outcomes for one
// operation together.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"haven/pkg/requestcontext"
)

// HeaderRequestID is the inbound header honored for request correlation.
// Mobile clients send one so a retry chain shares a single ID.
const HeaderRequestID = "X-Request-ID"

// maxHeaderIDLength bounds attacker-controlled header values before they reach
// logs and audit records.
const maxHeaderIDLength = 64

// Middleware sets a request ID in the context, honoring a well-formed inbound
// X-Request-ID and generating one otherwise. The assigned ID is echoed on the
// response for client-side correlation.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > maxHeaderIDLength {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
