// Package cache implements the read-through, TTL-bounded record caches the
// reservation client keeps for venue details and trending lists. Cached
// rows carry an explicit schema version; rows written by an older build are
// treated as misses instead of being structurally merged.
package cache

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/tablekeep/go-authsync"
)

// DefaultTTL bounds how long a cached row is served without refetching.
const DefaultTTL = 15 * time.Minute

// ErrMiss is returned by stores when no row exists for a key.
var ErrMiss = goerrors.New("cache miss", goerrors.CategoryNotFound).
	WithTextCode("cache_miss").
	WithCode(goerrors.CodeNotFound)

// Entry is a raw cached row.
type Entry struct {
	Key           string
	SchemaVersion int
	Payload       []byte
	FetchedAt     time.Time
}

// Store persists cache entries.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

// Loader fetches the upstream value on a miss.
type Loader func(ctx context.Context, key string) ([]byte, error)

// Option customizes cache construction.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger authsync.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSchemaVersion sets the version stamped on written rows; rows with a
// different version are treated as misses.
func WithSchemaVersion(version int) Option {
	return func(c *Cache) {
		if version > 0 {
			c.version = version
		}
	}
}

// Cache is a read-through cache over a Store and a Loader.
type Cache struct {
	store   Store
	loader  Loader
	ttl     time.Duration
	version int
	now     func() time.Time
	logger  authsync.Logger
}

func New(store Store, loader Loader, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		loader:  loader,
		ttl:     DefaultTTL,
		version: 1,
		now:     time.Now,
		logger:  noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Get returns the cached payload for key, loading and storing it when the
// row is absent, expired or written with a different schema version. A
// failed write-back is logged but does not fail the read.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := c.store.Get(ctx, key)
	if err == nil && c.fresh(entry) {
		return entry.Payload, nil
	}

	payload, err := c.loader(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, &Entry{
		Key:           key,
		SchemaVersion: c.version,
		Payload:       payload,
		FetchedAt:     c.now(),
	}); err != nil {
		c.logger.Warn("cache write-back failed for %s: %v", key, err)
	}

	return payload, nil
}

// Invalidate drops the cached row for key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

func (c *Cache) fresh(entry *Entry) bool {
	if entry == nil || entry.SchemaVersion != c.version {
		return false
	}
	return c.now().Sub(entry.FetchedAt) < c.ttl
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
