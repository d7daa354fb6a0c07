package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// EntryModel is the Bun model for cached rows.
type EntryModel struct {
	bun.BaseModel `bun:"table:cache_entries"`

	Key           string    `bun:"key,pk"`
	SchemaVersion int       `bun:"schema_version,notnull"`
	Payload       []byte    `bun:"payload,notnull"`
	FetchedAt     time.Time `bun:"fetched_at,notnull"`
}

// BunStore persists cache entries through Bun, typically over SQLite on
// the client device.
type BunStore struct {
	db *bun.DB
}

// NewBunStore creates a Bun-backed store.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// CreateTable creates the cache_entries table if it does not exist.
func (s *BunStore) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*EntryModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *BunStore) Get(ctx context.Context, key string) (*Entry, error) {
	var model EntryModel
	err := s.db.NewSelect().
		Model(&model).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, err
	}

	return &Entry{
		Key:           model.Key,
		SchemaVersion: model.SchemaVersion,
		Payload:       model.Payload,
		FetchedAt:     model.FetchedAt,
	}, nil
}

func (s *BunStore) Put(ctx context.Context, entry *Entry) error {
	model := &EntryModel{
		Key:           entry.Key,
		SchemaVersion: entry.SchemaVersion,
		Payload:       entry.Payload,
		FetchedAt:     entry.FetchedAt,
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (key) DO UPDATE").
		Set("schema_version = EXCLUDED.schema_version").
		Set("payload = EXCLUDED.payload").
		Set("fetched_at = EXCLUDED.fetched_at").
		Exec(ctx)
	return err
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}
