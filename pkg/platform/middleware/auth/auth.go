// Package auth provides the bearer-token middleware guarding all
// authenticated routes. Claims are parsed into typed IDs before anything
// downstream sees them; a token that does not yield valid IDs never reaches
// a handler.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
	"haven/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID           string
	SessionID        string
	JTI              string // JWT ID for revocation tracking
	SubscriptionTier string // billing tier the session was minted under
	APIVersion       string // version the token was minted for
}

// RequireAuth validates the bearer token, checks revocation, and stores the
// authenticated identity in the request context.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
					return
				}

				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed user claim",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			ctx = requestcontext.WithUserID(ctx, userID)

			// The tier claim feeds isolation boundary checks downstream. An
			// absent claim means the free tier; no lookup happens here.
			if claims.SubscriptionTier != "" {
				ctx = requestcontext.WithSubscriptionTier(ctx, claims.SubscriptionTier)
			}

			// Session is optional for long-lived refresh flows; when present
			// it must parse.
			if claims.SessionID != "" {
				sessionID, err := id.ParseSessionID(claims.SessionID)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - malformed session claim",
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
					return
				}
				ctx = requestcontext.WithSessionID(ctx, sessionID)
			}

			if claims.APIVersion != "" {
				if v, err := id.ParseAPIVersion(claims.APIVersion); err == nil {
					ctx = requestcontext.WithTokenAPIVersion(ctx, v)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
