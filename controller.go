package authsync

import (
	"context"
	"reflect"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultSignOutCooldown bounds how long duplicate unauthorized outcomes
// are suppressed after a forced sign-out. The right value depends on the
// host's fetch latency profile; override it via Config or
// WithSignOutCooldown.
const DefaultSignOutCooldown = 30 * time.Second

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithControllerClock injects a custom clock (useful for tests).
func WithControllerClock(clock func() time.Time) ControllerOption {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithSignOutCooldown overrides the sign-out guard cooldown window.
func WithSignOutCooldown(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// Controller reconciles identity provider events with the backend session
// record and mutates the store. Provider events, token derivation and
// session fetches are all asynchronous and may resolve in any order; each
// in-flight fetch is stamped with the generation and uid it was issued
// for, and results whose stamp no longer matches the latest event are
// discarded rather than assuming FIFO resolution.
type Controller struct {
	provider Provider
	fetcher  SessionFetcher
	store    *Store
	logger   Logger
	now      func() time.Time
	cooldown time.Duration
	guard    *signOutGuard

	mu         sync.Mutex
	generation uint64
	currentUID string
	baseCtx    context.Context
	unsub      Unsubscribe
}

// NewController wires the provider, fetcher and store together. The
// sign-out guard is owned here, not by the store, and survives Stop/Start
// cycles of the host lifecycle.
func NewController(provider Provider, fetcher SessionFetcher, store *Store, cfg Config, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider: provider,
		fetcher:  fetcher,
		store:    store,
		logger:   defLogger{},
		now:      time.Now,
		cooldown: DefaultSignOutCooldown,
	}

	if cfg != nil && cfg.GetSignOutCooldown() > 0 {
		c.cooldown = cfg.GetSignOutCooldown()
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.guard = newSignOutGuard(c.cooldown, c.now)

	return c
}

// Store returns the auth state store consumers read from.
func (c *Controller) Store() *Store {
	return c.store
}

// Snapshot returns the current auth snapshot.
func (c *Controller) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// Start subscribes to provider auth events. Idempotent; ctx is the base
// context for event-driven session fetches.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsub != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.baseCtx = ctx
	c.unsub = c.provider.OnAuthChanged(func(identity Identity) {
		c.handleAuthChange(c.baseCtx, identity)
	})
}

// Stop unsubscribes from provider events. Guard state is retained so a
// restart cannot re-trigger a forced sign-out inside the cooldown window.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

// RefreshSession re-runs the session fetch for the current identity
// without touching the loading flag. With no identity present it is a
// silent no-op: no store mutation, no error.
func (c *Controller) RefreshSession(ctx context.Context) error {
	snap := c.store.Snapshot()
	if snap.Identity == nil {
		return nil
	}

	c.mu.Lock()
	gen := c.generation
	uid := c.currentUID
	c.mu.Unlock()

	if uid != snap.Identity.ID() {
		// A newer provider event is already in flight; it owns the fetch.
		return nil
	}

	return c.syncSession(ctx, snap.Identity, gen, false)
}

// SignIn authenticates with email and password. Errors are returned to the
// caller for form-level display and never recorded in the store; the
// session sync itself is driven by the provider's resulting auth event.
func (c *Controller) SignIn(ctx context.Context, creds Credentials) (Identity, error) {
	if err := creds.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign-in payload")
	}

	c.store.SetSigningIn(true)
	defer c.store.SetSigningIn(false)

	identity, err := c.provider.SignInPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		c.logger.Error("sign-in failed: %v", err)
		return nil, err
	}
	return identity, nil
}

// SignInFederated exchanges a credential obtained from an interactive
// federated flow.
func (c *Controller) SignInFederated(ctx context.Context, credential FederatedCredential) (Identity, error) {
	if err := credential.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid federated credential")
	}

	c.store.SetSigningIn(true)
	defer c.store.SetSigningIn(false)

	identity, err := c.provider.SignInFederated(ctx, credential)
	if err != nil {
		c.logger.Error("federated sign-in failed: %v", err)
		return nil, err
	}
	return identity, nil
}

// SignUp creates a new account with the provider.
func (c *Controller) SignUp(ctx context.Context, payload SignUpPayload) (Identity, error) {
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign-up payload")
	}

	c.store.SetSigningIn(true)
	defer c.store.SetSigningIn(false)

	identity, err := c.provider.SignUp(ctx, payload.Email, payload.Password, payload.DisplayName)
	if err != nil {
		c.logger.Error("sign-up failed: %v", err)
		return nil, err
	}
	return identity, nil
}

// SignOut signs out at the provider. The store is cleared when the
// provider emits the resulting nil auth event.
func (c *Controller) SignOut(ctx context.Context) error {
	c.store.SetSigningOut(true)
	defer c.store.SetSigningOut(false)

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Error("sign-out failed: %v", err)
		return err
	}
	return nil
}

func (c *Controller) handleAuthChange(ctx context.Context, identity Identity) {
	if identity == nil || reflect.ValueOf(identity).IsZero() {
		c.mu.Lock()
		c.generation++
		c.currentUID = ""
		c.mu.Unlock()

		c.store.ClearAll()
		c.logger.Info("provider reported signed out")
		return
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.currentUID = identity.ID()
	c.mu.Unlock()

	c.logger.Debug("provider auth change for uid %s", identity.ID())
	c.store.SetLoading(true)

	_ = c.syncSession(ctx, identity, gen, true)
}

// syncSession derives a fresh token and fetches the session record,
// applying the outcome only if the stamped generation is still current.
// manageLoading is true for provider-event flows; manual refresh leaves
// the loading flag alone.
func (c *Controller) syncSession(ctx context.Context, identity Identity, gen uint64, manageLoading bool) error {
	uid := identity.ID()

	token, err := c.provider.Token(ctx, identity)
	if err != nil {
		c.handleTokenFailure(ctx, gen, uid, err)
		return err
	}

	if !c.applyIfCurrent(gen, uid, func() {
		c.store.SetIdentityAndToken(identity, token)
	}) {
		c.logger.Debug("discarding superseded auth event for uid %s", uid)
		return nil
	}

	record, err := c.fetcher.FetchSession(ctx, uid, token)

	switch {
	case err == nil:
		if !c.applyIfCurrent(gen, uid, func() {
			c.store.SetSession(record)
			if manageLoading {
				c.store.SetLoading(false)
			}
		}) {
			c.logger.Debug("discarding stale session result for uid %s", uid)
			return nil
		}
		c.logger.Debug("session synchronized for uid %s", uid)
		return nil

	case IsUnauthorized(err):
		if c.isStale(gen, uid) {
			c.logger.Debug("discarding stale unauthorized result for uid %s", uid)
			return nil
		}
		c.forceSignOut(ctx, gen, uid)
		return err

	default:
		// Transient: keep identity, token and any previously held session;
		// record the error so consumers can offer a retry.
		c.applyIfCurrent(gen, uid, func() {
			c.store.SetError(err)
			if manageLoading {
				c.store.SetLoading(false)
			}
		})
		c.logger.Warn("session fetch failed for uid %s: %v", uid, err)
		return err
	}
}

// handleTokenFailure clears the store and, once per cooldown window, asks
// the provider to sign out so its state agrees with ours.
func (c *Controller) handleTokenFailure(ctx context.Context, gen uint64, uid string, err error) {
	c.logger.Error("token derivation failed for uid %s: %v", uid, err)

	if !c.applyIfCurrent(gen, uid, func() {
		c.store.ClearAll()
	}) {
		return
	}

	if c.guard.TryArm() {
		if soErr := c.provider.SignOut(ctx); soErr != nil {
			c.logger.Warn("provider sign-out after token failure: %v", soErr)
		}
	}
}

// forceSignOut runs the guarded forced sign-out sequence. The first
// unauthorized outcome wins the latch, clears the store and invokes the
// provider sign-out; outcomes landing while the guard is armed are ignored
// so overlapping failures cannot loop.
func (c *Controller) forceSignOut(ctx context.Context, gen uint64, uid string) {
	if !c.guard.TryArm() {
		c.logger.Debug("forced sign-out already in progress; ignoring unauthorized result for uid %s", uid)
		c.applyIfCurrent(gen, uid, func() {
			c.store.SetLoading(false)
		})
		return
	}

	// The clear is stamped like every other mutation: an event for a new
	// identity landing after the staleness check must not be wiped, and the
	// new identity's provider state must not be signed out from under it.
	if !c.applyIfCurrent(gen, uid, func() {
		c.store.ClearAll()
	}) {
		c.logger.Debug("discarding superseded unauthorized result for uid %s", uid)
		return
	}

	c.logger.Warn("session endpoint rejected credential for uid %s; forcing sign-out", uid)

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Error("forced provider sign-out failed: %v", err)
	}
}

// applyIfCurrent runs apply only when the stamped generation and uid still
// match the latest provider event, making the mutation and the staleness
// check atomic with respect to new events.
func (c *Controller) applyIfCurrent(gen uint64, uid string, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.currentUID != uid {
		return false
	}
	apply()
	return true
}

func (c *Controller) isStale(gen uint64, uid string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation || c.currentUID != uid
}
