// Package auth issues and validates the HS256 session tokens the patient
// app presents on every request. A token is a short-lived bearer credential;
// cutting one off before its natural expiry is the revocation subpackage's
// job, consulted by the middleware on each request.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "haven/pkg/domain"
	dErrors "haven/pkg/domain-errors"
)

// ErrTokenExpired reports a token that verified correctly but is past its
// expiry. Callers distinguish it from other validation failures: an expired
// token cannot authenticate anymore, so acting on it is usually a no-op.
var ErrTokenExpired = dErrors.New(dErrors.CodeUnauthorized, "token has expired")

// Claims is the payload carried by a session token.
//
// The tier claim rides along so isolation boundary checks can run without a
// billing lookup on the request path. Clinical data never appears in claims.
type Claims struct {
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	ClientID   string `json:"client_id"`
	Tier       string `json:"tier,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and validates session tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewTokenService(signingKey string, issuer string, audience string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateSessionToken mints a signed token bound to an authenticated
// session. Both IDs must be real; a token can never be minted for the nil
// user.
func (s *TokenService) GenerateSessionToken(
	userID id.UserID,
	sessionID id.SessionID,
	clientID string,
	tier string,
	expiresIn time.Duration) (string, error) {
	if userID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if sessionID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:     userID.String(),
		SessionID:  sessionID.String(),
		ClientID:   clientID,
		Tier:       tier,
		APIVersion: id.DefaultVersion().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and verifies a session token. Issuer and audience
// must match the service configuration. Every failure maps to
// CodeUnauthorized so the transport layer answers 401 without inspecting
// the cause.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}
