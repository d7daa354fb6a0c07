package restidp

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims are the profile claims carried by a provider ID token.
type IDTokenClaims struct {
	jwt.RegisteredClaims
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// TokenValidator verifies provider-issued ID tokens against the provider's
// JWKS before their claims are trusted.
type TokenValidator struct {
	jwks   *keyfunc.JWKS
	issuer string
}

// NewTokenValidator fetches the JWKS and keeps it refreshed in the
// background. issuer is optional; when set, tokens from other issuers are
// rejected.
func NewTokenValidator(jwksURL, issuer string) (*TokenValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("restidp: failed to load JWKS: %w", err)
	}

	return &TokenValidator{jwks: jwks, issuer: issuer}, nil
}

// Validate parses and verifies raw, returning its claims.
func (v *TokenValidator) Validate(raw string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("restidp: invalid id token")
	}

	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	v.jwks.EndBackground()
}

// parseUnverifiedClaims extracts claims without signature verification,
// used only as a fallback for profile fields the sign-in response omits.
func parseUnverifiedClaims(raw string) *IDTokenClaims {
	claims := &IDTokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}
