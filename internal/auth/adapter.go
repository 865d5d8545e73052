package auth

import (
	authmw "haven/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims maps token claims onto the shape the auth middleware
// consumes. The JTI rides along so the revocation list can be consulted.
// ClientID is deliberately dropped: nothing past the middleware keys on it.
func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID:           claims.UserID,
		SessionID:        claims.SessionID,
		JTI:              claims.ID,
		SubscriptionTier: claims.Tier,
		APIVersion:       claims.APIVersion,
	}
}

// TokenServiceAdapter adapts TokenService to the middleware's JWTValidator.
type TokenServiceAdapter struct {
	service *TokenService
}

func NewTokenServiceAdapter(service *TokenService) *TokenServiceAdapter {
	return &TokenServiceAdapter{service: service}
}

func (a *TokenServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
