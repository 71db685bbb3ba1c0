package main

import (
	"context"
	"fmt"
	"path/filepath"

	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/checkpoint"
	"github.com/JakeFAU/directory-crawler/internal/config"
	"github.com/JakeFAU/directory-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/directory-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/directory-crawler/internal/fetcher/retry"
	"github.com/JakeFAU/directory-crawler/internal/hash/sha256"
	"github.com/JakeFAU/directory-crawler/internal/images"
	"github.com/JakeFAU/directory-crawler/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/directory-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/directory-crawler/internal/storage"
	csvsink "github.com/JakeFAU/directory-crawler/internal/storage/csv"
	"github.com/JakeFAU/directory-crawler/internal/storage/gcs"
	"github.com/JakeFAU/directory-crawler/internal/storage/local"
	"github.com/JakeFAU/directory-crawler/internal/storage/memory"
	"github.com/JakeFAU/directory-crawler/internal/storage/postgres"
	redisledger "github.com/JakeFAU/directory-crawler/internal/storage/redis"
	"github.com/JakeFAU/directory-crawler/internal/storage/xlsx"
	"github.com/JakeFAU/directory-crawler/internal/throttle"
	"github.com/JakeFAU/directory-crawler/internal/website"
)

// dependencies holds everything the run needs apart from the browser.
type dependencies struct {
	sites     *website.Scraper
	images    *images.Downloader
	sink      crawler.Sink
	observers []crawler.SnapshotObserver
	ledger    crawler.UnitLedger
	closers   []func() error
}

func (d *dependencies) Close(logger *zap.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Warn("close dependency failed", zap.Error(err))
		}
	}
}

func buildDependencies(
	ctx context.Context,
	cfg config.Config,
	runID string,
	clock crawler.Clock,
	logger *zap.Logger,
) (*dependencies, error) {
	deps := &dependencies{}
	fail := func(err error) (*dependencies, error) {
		deps.Close(logger)
		return nil, err
	}

	gate, err := throttle.New(cfg.Fetch.GateCapacity, cfg.Fetch.PollInterval)
	if err != nil {
		return fail(fmt.Errorf("throttle gate: %w", err))
	}
	transport := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      max(cfg.Fetch.ImageTimeout, cfg.Fetch.SiteTimeout),
		MaxIdleConns: cfg.Fetch.MaxIdleConns,
	})
	var opts []retry.Option
	if cfg.Fetch.PerHostRPS > 0 {
		opts = append(opts, retry.WithLimiter(ratelimit.New(ratelimit.Config{
			PerHostRPS:   cfg.Fetch.PerHostRPS,
			PerHostBurst: cfg.Fetch.PerHostBurst,
		})))
	}
	imageFetcher := retry.New(transport, gate, retry.Config{
		Kind:       "image",
		MaxRetries: cfg.Fetch.MaxRetries,
		Delay:      cfg.Fetch.RetryDelay,
	}, logger, opts...)
	siteFetcher := retry.New(transport, gate, retry.Config{
		Kind:       "site",
		MaxRetries: cfg.Fetch.MaxRetries,
		Delay:      cfg.Fetch.RetryDelay,
	}, logger, opts...)

	imageStore, err := local.New(local.Config{BaseDir: cfg.Images.Dir})
	if err != nil {
		return fail(fmt.Errorf("image store: %w", err))
	}
	deps.images = images.New(imageFetcher, imageStore, images.Config{
		FolderPrefix: cfg.Images.FolderPrefix,
		Timeout:      cfg.Fetch.ImageTimeout,
	}, logger)
	deps.sites = website.New(siteFetcher, cfg.Fetch.SiteTimeout, logger)

	switch cfg.Checkpoint.Format {
	case config.FormatCSV:
		deps.sink = csvsink.New()
	default:
		deps.sink = xlsx.New()
	}

	if cfg.Postgres.DSN != "" {
		store, err := postgres.NewListingStore(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		}, runID, sha256.New())
		if err != nil {
			return fail(fmt.Errorf("postgres sink: %w", err))
		}
		deps.closers = append(deps.closers, func() error { store.Close(); return nil })
		if err := store.EnsureSchema(ctx); err != nil {
			return fail(fmt.Errorf("postgres schema: %w", err))
		}
		deps.observers = append(deps.observers, store)
		logger.Info("postgres sink enabled", zap.String("table", cfg.Postgres.Table))
	}

	uri := func(path string) string { return filepath.Clean(path) }
	if cfg.GCS.Bucket != "" {
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return fail(fmt.Errorf("gcs client: %w", err))
		}
		deps.closers = append(deps.closers, client.Close)
		bucket, err := gcs.New(client, gcs.Config{
			Bucket:       cfg.GCS.Bucket,
			CacheControl: cfg.GCS.CacheControl,
			RunID:        runID,
		})
		if err != nil {
			return fail(fmt.Errorf("gcs store: %w", err))
		}
		mirror := storage.NewMirror(bucket, cfg.GCS.Prefix)
		deps.observers = append(deps.observers, mirror)
		uri = func(path string) string { return bucket.URI(mirror.ObjectPath(path)) }
		logger.Info("snapshot mirror enabled", zap.String("bucket", cfg.GCS.Bucket))
	}

	if cfg.PubSub.Topic != "" {
		pub, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
		if err != nil {
			return fail(fmt.Errorf("pubsub publisher: %w", err))
		}
		deps.closers = append(deps.closers, pub.Close)
		deps.observers = append(deps.observers, checkpoint.NewNotifier(pub, cfg.PubSub.Topic, runID, clock, uri))
		logger.Info("snapshot notifications enabled", zap.String("topic", cfg.PubSub.Topic))
	}

	if cfg.Redis.Addr != "" {
		ledger, err := redisledger.New(ctx, redisledger.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return fail(fmt.Errorf("redis ledger: %w", err))
		}
		deps.closers = append(deps.closers, ledger.Close)
		deps.ledger = ledger
		logger.Info("resume ledger enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		deps.ledger = memory.NewLedger()
	}

	return deps, nil
}
