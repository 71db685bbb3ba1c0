// Package redis persists completed search units so an interrupted run can
// resume where it stopped.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

const keyPrefix = "dircrawler:unit:"

// Config controls the Redis connection and key lifetime.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Ledger implements crawler.UnitLedger with expiring Redis keys.
type Ledger struct {
	client goredis.Cmdable
	ttl    time.Duration
	closer func() error
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	l := NewWithClient(client, cfg.TTL)
	l.closer = client.Close
	return l, nil
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client goredis.Cmdable, ttl time.Duration) *Ledger {
	return &Ledger{client: client, ttl: ttl}
}

// Key returns the Redis key for unit.
func Key(unit crawler.SearchUnit) string {
	return keyPrefix + unit.Key()
}

// Done reports whether unit was completed within the TTL.
func (l *Ledger) Done(ctx context.Context, unit crawler.SearchUnit) (bool, error) {
	_, err := l.client.Get(ctx, Key(unit)).Result()
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check unit %s: %w", unit.Key(), err)
	}
	return true, nil
}

// MarkDone records unit as completed.
func (l *Ledger) MarkDone(ctx context.Context, unit crawler.SearchUnit) error {
	if err := l.client.Set(ctx, Key(unit), time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("mark unit %s: %w", unit.Key(), err)
	}
	return nil
}

// Close closes the client when New created it.
func (l *Ledger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}
