package restidp

import (
	"net/http"
	"time"

	"github.com/tablekeep/go-authsync"
)

const (
	defaultSignInURL    = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"
	defaultSignUpURL    = "https://identitytoolkit.googleapis.com/v1/accounts:signUp"
	defaultFederatedURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithIdp"
	defaultUpdateURL    = "https://identitytoolkit.googleapis.com/v1/accounts:update"
	defaultRefreshURL   = "https://securetoken.googleapis.com/v1/token"

	// defaultTokenSlack is the remaining validity below which a cached ID
	// token is refreshed instead of reused.
	defaultTokenSlack = time.Minute
)

// Config holds identity-toolkit provider configuration.
type Config struct {
	// APIKey is the project API key appended to every request.
	APIKey string

	// Endpoint overrides, mainly for tests and self-hosted emulators.
	SignInURL    string
	SignUpURL    string
	FederatedURL string
	UpdateURL    string
	RefreshURL   string

	// Validator, when set, verifies ID-token signatures against the
	// provider's JWKS before profile claims are trusted.
	Validator *TokenValidator

	// TokenSlack controls how close to expiry a cached token may be served.
	TokenSlack time.Duration

	HTTPClient *http.Client
	Logger     authsync.Logger
}

func (c Config) signInURL() string {
	if c.SignInURL != "" {
		return c.SignInURL
	}
	return defaultSignInURL
}

func (c Config) signUpURL() string {
	if c.SignUpURL != "" {
		return c.SignUpURL
	}
	return defaultSignUpURL
}

func (c Config) federatedURL() string {
	if c.FederatedURL != "" {
		return c.FederatedURL
	}
	return defaultFederatedURL
}

func (c Config) updateURL() string {
	if c.UpdateURL != "" {
		return c.UpdateURL
	}
	return defaultUpdateURL
}

func (c Config) refreshURL() string {
	if c.RefreshURL != "" {
		return c.RefreshURL
	}
	return defaultRefreshURL
}

func (c Config) tokenSlack() time.Duration {
	if c.TokenSlack > 0 {
		return c.TokenSlack
	}
	return defaultTokenSlack
}
