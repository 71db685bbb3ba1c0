// Package postgres upserts snapshot listings into Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidTableName reports whether name is safe to interpolate into SQL.
func ValidTableName(name string) bool {
	return validTableName.MatchString(name)
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Fingerprinter derives a stable identity for a listing.
type Fingerprinter interface {
	Fingerprint(parts ...string) string
}

// ListingStore implements crawler.SnapshotObserver by upserting every
// listing of a snapshot in one transaction.
type ListingStore struct {
	pool   pool
	table  string
	runID  string
	hasher Fingerprinter
}

// NewListingStore connects a pool using cfg.
func NewListingStore(ctx context.Context, cfg Config, runID string, hasher Fingerprinter) (*ListingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewListingStoreWithPool(p, cfg.Table, runID, hasher)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewListingStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewListingStoreWithPool(p pool, table, runID string, hasher Fingerprinter) (*ListingStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if table == "" {
		table = "listings"
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ListingStore{pool: p, table: table, runID: runID, hasher: hasher}, nil
}

// Close releases the underlying pool resources.
func (s *ListingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the listings table when missing.
func (s *ListingStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	fingerprint   TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	category      TEXT NOT NULL,
	name          TEXT NOT NULL,
	street        TEXT,
	number        TEXT,
	postal_code   TEXT,
	city          TEXT,
	phone         TEXT,
	email         TEXT,
	website       TEXT,
	instagram     TEXT,
	facebook      TEXT,
	tiktok        TEXT,
	linkedin      TEXT,
	hours         JSONB,
	latitude      TEXT,
	longitude     TEXT,
	image         TEXT,
	snapshot_kind TEXT,
	updated_at    TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Fingerprint identifies a listing by category, name, street, number and city.
func (s *ListingStore) Fingerprint(l crawler.Listing) string {
	return s.hasher.Fingerprint(l.Category, l.Name, l.Street, l.Number, l.City)
}

// OnSnapshot upserts all listings of snap.
func (s *ListingStore) OnSnapshot(ctx context.Context, snap crawler.Snapshot, listings []crawler.Listing) (err error) {
	if len(listings) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	query := s.upsertQuery()
	for _, l := range listings {
		args, err := s.args(l, snap)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %q: %w", l.Name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (s *ListingStore) upsertQuery() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	fingerprint, run_id, category, name, street, number, postal_code, city,
	phone, email, website, instagram, facebook, tiktok, linkedin,
	hours, latitude, longitude, image, snapshot_kind, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
)
ON CONFLICT (fingerprint) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	postal_code = EXCLUDED.postal_code,
	phone = EXCLUDED.phone,
	email = EXCLUDED.email,
	website = EXCLUDED.website,
	instagram = EXCLUDED.instagram,
	facebook = EXCLUDED.facebook,
	tiktok = EXCLUDED.tiktok,
	linkedin = EXCLUDED.linkedin,
	hours = EXCLUDED.hours,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	image = EXCLUDED.image,
	snapshot_kind = EXCLUDED.snapshot_kind,
	updated_at = EXCLUDED.updated_at`, s.table)
}

func (s *ListingStore) args(l crawler.Listing, snap crawler.Snapshot) ([]any, error) {
	hours := l.Hours
	if hours == nil {
		hours = crawler.NewHours()
	}
	hoursJSON, err := json.Marshal(hours)
	if err != nil {
		return nil, fmt.Errorf("marshal hours: %w", err)
	}
	return []any{
		s.Fingerprint(l),
		s.runID,
		l.Category,
		l.Name,
		l.Street,
		l.Number,
		l.PostalCode,
		l.City,
		l.Phone,
		l.Email,
		l.Website,
		l.Socials.Instagram,
		l.Socials.Facebook,
		l.Socials.TikTok,
		l.Socials.LinkedIn,
		hoursJSON,
		l.Latitude,
		l.Longitude,
		l.Image,
		snap.Kind.String(),
		snap.WrittenAt,
	}, nil
}
