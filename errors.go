package authsync

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeNetwork            = "auth_network_error"
	TextCodeProvider           = "auth_provider_error"
	TextCodeTokenUnavailable   = "auth_token_unavailable"
	TextCodeUnauthorized       = "session_unauthorized"
	TextCodeTransient          = "session_fetch_transient"
)

// ErrInvalidCredentials is returned when the provider rejects the supplied
// email/password pair. Surfaced to the sign-in caller, never stored.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNetwork is returned when the identity provider is unreachable.
var ErrNetwork = errors.New("identity provider unreachable", errors.CategoryOperation).
	WithTextCode(TextCodeNetwork)

// ErrProvider is returned for unexpected identity provider failures.
var ErrProvider = errors.New("identity provider error", errors.CategoryInternal).
	WithTextCode(TextCodeProvider)

// ErrTokenUnavailable is returned when a credential token cannot be derived
// because the provider revoked the credential. Forces a full sign-out.
var ErrTokenUnavailable = errors.New("credential token unavailable", errors.CategoryAuth).
	WithTextCode(TextCodeTokenUnavailable).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is returned when the session endpoint rejects the
// presented credential. Terminal: routes through the guarded sign-out path.
var ErrUnauthorized = errors.New("session endpoint rejected credential", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrTransient is returned for recoverable session fetch failures (network,
// 5xx, malformed body). Never forces a sign-out; the next provider event or
// manual refresh retries.
var ErrTransient = errors.New("session fetch failed", errors.CategoryOperation).
	WithTextCode(TextCodeTransient)

// IsUnauthorized reports whether err classifies as a terminal credential
// rejection. Misclassifying a transient failure here would sign users out
// on ordinary network blips, so callers must only rely on these helpers.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTransient reports whether err is a recoverable session fetch failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsTokenUnavailable reports whether err means the provider credential has
// been revoked.
func IsTokenUnavailable(err error) bool {
	return errors.Is(err, ErrTokenUnavailable)
}

// IsInvalidCredentials reports whether err is a sign-in rejection suitable
// for form-level display.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}
