package cache

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Schema versions for the typed record caches. Bumping a version makes
// every previously written row read as a miss.
const (
	VenueSchemaVersion    = 2
	TrendingSchemaVersion = 1
)

// ErrCorrupt is returned when a freshly loaded row still fails schema
// validation, which points at the upstream payload rather than the cache.
var ErrCorrupt = goerrors.New("cached record failed validation", goerrors.CategoryInternal).
	WithTextCode("cache_record_corrupt")

// VenueRecord is a cached venue-detail row.
type VenueRecord struct {
	SchemaVersion int       `json:"schema_version"`
	VenueID       string    `json:"venue_id"`
	Name          string    `json:"name"`
	Neighborhood  string    `json:"neighborhood,omitempty"`
	PriceTier     int       `json:"price_tier,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Valid reports whether the record carries the current schema and its
// required fields.
func (r *VenueRecord) Valid() bool {
	return r != nil && r.SchemaVersion == VenueSchemaVersion && r.VenueID != "" && r.Name != ""
}

// TrendingRecord is a cached trending-venues row for one calendar date.
type TrendingRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Date          string    `json:"date"`
	VenueIDs      []string  `json:"venue_ids"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func (r *TrendingRecord) Valid() bool {
	return r != nil && r.SchemaVersion == TrendingSchemaVersion && r.Date != ""
}

// VenueLoader fetches a venue record from the upstream API.
type VenueLoader func(ctx context.Context, venueID string) (*VenueRecord, error)

// VenueCache is a typed read-through cache for venue details.
type VenueCache struct {
	cache *Cache
}

func NewVenueCache(store Store, loader VenueLoader, opts ...Option) *VenueCache {
	raw := func(ctx context.Context, key string) ([]byte, error) {
		rec, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}
		rec.SchemaVersion = VenueSchemaVersion
		return json.Marshal(rec)
	}

	opts = append([]Option{WithSchemaVersion(VenueSchemaVersion)}, opts...)
	return &VenueCache{cache: New(store, raw, opts...)}
}

// Get returns the venue record for venueID. A decoded row that fails
// validation is dropped and fetched once more before giving up.
func (vc *VenueCache) Get(ctx context.Context, venueID string) (*VenueRecord, error) {
	rec, err := getValidated[VenueRecord](ctx, vc.cache, venueID, (*VenueRecord).Valid)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Invalidate drops the cached row for venueID.
func (vc *VenueCache) Invalidate(ctx context.Context, venueID string) error {
	return vc.cache.Invalidate(ctx, venueID)
}

// TrendingLoader fetches the trending list for a date (YYYY-MM-DD).
type TrendingLoader func(ctx context.Context, date string) (*TrendingRecord, error)

// TrendingCache is a typed read-through cache for trending-venue lists.
type TrendingCache struct {
	cache *Cache
}

func NewTrendingCache(store Store, loader TrendingLoader, opts ...Option) *TrendingCache {
	raw := func(ctx context.Context, key string) ([]byte, error) {
		rec, err := loader(ctx, key)
		if err != nil {
			return nil, err
		}
		rec.SchemaVersion = TrendingSchemaVersion
		return json.Marshal(rec)
	}

	opts = append([]Option{WithSchemaVersion(TrendingSchemaVersion)}, opts...)
	return &TrendingCache{cache: New(store, raw, opts...)}
}

func (tc *TrendingCache) Get(ctx context.Context, date string) (*TrendingRecord, error) {
	return getValidated[TrendingRecord](ctx, tc.cache, date, (*TrendingRecord).Valid)
}

func (tc *TrendingCache) Invalidate(ctx context.Context, date string) error {
	return tc.cache.Invalidate(ctx, date)
}

// getValidated decodes a cached payload and enforces record validity. An
// invalid row is invalidated and re-read once; a second failure surfaces
// ErrCorrupt since the loader itself produced the bad payload.
func getValidated[T any](ctx context.Context, c *Cache, key string, valid func(*T) bool) (*T, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	rec := new(T)
	if err := json.Unmarshal(raw, rec); err == nil && valid(rec) {
		return rec, nil
	}

	if err := c.Invalidate(ctx, key); err != nil {
		return nil, err
	}

	raw, err = c.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	rec = new(T)
	if err := json.Unmarshal(raw, rec); err != nil || !valid(rec) {
		return nil, ErrCorrupt.Clone().WithMetadata(map[string]any{"key": key})
	}

	return rec, nil
}
