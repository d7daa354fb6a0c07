package sessionguard

import (
	"errors"

	"github.com/goliatone/go-router"
	"github.com/tablekeep/go-authsync"
)

var (
	// ErrNotAuthenticated is returned for requests without a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotOnboarded is returned when the route requires completed
	// onboarding and the session record says otherwise.
	ErrNotOnboarded = errors.New("onboarding not completed")

	// ErrAuthPending is returned while the controller has not reached a
	// terminal state yet; callers should retry rather than re-authenticate.
	ErrAuthPending = errors.New("authentication still settling")
)

// SnapshotSource provides the current auth snapshot. Both *authsync.Store
// and *authsync.Controller satisfy it.
type SnapshotSource interface {
	Snapshot() authsync.Snapshot
}

type Config struct {
	// Source is required.
	Source SnapshotSource

	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// ContextKey is where the snapshot is stored for downstream handlers.
	ContextKey string

	// RequireOnboarded additionally rejects sessions whose onboarding is
	// not completed.
	RequireOnboarded bool
}

// New builds a route guard middleware over the auth snapshot.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			snap := cfg.Source.Snapshot()
			if err := Check(snap, cfg.RequireOnboarded); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, snap)
			return cfg.SuccessHandler(ctx)
		}
	}
}

// Check applies the guard rules to a snapshot. Split out so hosts with a
// different transport can reuse the decision logic.
func Check(snap authsync.Snapshot, requireOnboarded bool) error {
	if !snap.Authenticated {
		if snap.CombinedLoading() {
			return ErrAuthPending
		}
		return ErrNotAuthenticated
	}

	if requireOnboarded && !snap.IsOnboarded() {
		return ErrNotOnboarded
	}

	return nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Source == nil {
		panic("AUTHSYNC: session guard configuration: Source is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			switch {
			case errors.Is(err, ErrAuthPending):
				return c.Status(router.StatusServiceUnavailable).SendString(err.Error())
			case errors.Is(err, ErrNotOnboarded):
				return c.Status(router.StatusForbidden).SendString(err.Error())
			default:
				return c.Status(router.StatusUnauthorized).SendString(err.Error())
			}
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "auth"
	}

	return cfg
}
