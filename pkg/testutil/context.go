package testutil

import (
	"net/http"

	id "haven/pkg/domain"
	"haven/pkg/requestcontext"
)

// WithUser stamps an authenticated user onto the request context, the way
// RequireAuth would after validating a token.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

// WithSession adds a session ID to the request context.
func WithSession(req *http.Request, sessionID id.SessionID) *http.Request {
	return req.WithContext(requestcontext.WithSessionID(req.Context(), sessionID))
}

// Authenticated stamps user and session together, the state RequireAuth
// leaves a request in.
func Authenticated(req *http.Request, userID id.UserID, sessionID id.SessionID) *http.Request {
	return WithSession(WithUser(req, userID), sessionID)
}
