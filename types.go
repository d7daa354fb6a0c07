package authsync

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the profile issued by the identity provider for the
// current credential. It is immutable once issued and replaced wholesale
// on every sign-in.
type Identity interface {
	ID() string
	DisplayName() string
	Email() string
}

// AuthChangeFunc receives the provider's current identity. A nil identity
// means the provider is signed out.
type AuthChangeFunc func(identity Identity)

// Unsubscribe removes a previously registered auth change listener.
type Unsubscribe func()

// Provider wraps the external identity service. Listeners registered with
// OnAuthChanged are invoked asynchronously, at least once with the current
// state and again on every sign-in and sign-out; callers must not assume
// synchronous delivery.
type Provider interface {
	OnAuthChanged(fn AuthChangeFunc) Unsubscribe

	// Token derives a short-lived credential token for the identity. It
	// fails with ErrTokenUnavailable when the credential has been revoked.
	Token(ctx context.Context, identity Identity) (string, error)

	SignInPassword(ctx context.Context, email, password string) (Identity, error)
	SignInFederated(ctx context.Context, credential FederatedCredential) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	SignOut(ctx context.Context) error
}

// SessionFetcher retrieves the backend session record for a user. Failures
// are classified: ErrUnauthorized means the backend rejected the presented
// credential, anything else maps to ErrTransient.
type SessionFetcher interface {
	FetchSession(ctx context.Context, uid, token string) (*SessionRecord, error)
}

// Config holds options supplied by the host application. Zero values fall
// back to package defaults.
type Config interface {
	GetSessionEndpoint() string
	GetSignOutCooldown() time.Duration
	GetHTTPTimeout() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHSYNC "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHSYNC "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
