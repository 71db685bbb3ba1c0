// Package extractor drives the page navigator through one search unit and
// turns the visible result listings into crawler.Listing records.
//
// Each unit runs NAVIGATE, LOCATE_RESULTS, SCROLL_LOAD, ITERATE and, per
// listing, EXTRACT_FIELDS. Attempts are bounded by count and by a wall-clock
// budget measured from the first attempt. A listing whose name, click or
// details pane fails is skipped; every other field fails in isolation.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/fetcher/retry"
	"github.com/JakeFAU/directory-crawler/internal/metrics"
	"github.com/JakeFAU/directory-crawler/internal/website"
)

var (
	// ErrBudgetExceeded reports that a unit ran past its wall-clock budget.
	ErrBudgetExceeded = errors.New("unit execution budget exceeded")
	// ErrAttemptsExhausted reports that every attempt of a unit failed.
	ErrAttemptsExhausted = errors.New("unit attempts exhausted")
)

// SiteScraper looks up contact data on a business website.
type SiteScraper interface {
	Scrape(ctx context.Context, rawURL string) website.Result
}

// ImageDownloader stores a listing image and returns its local path.
type ImageDownloader interface {
	Download(ctx context.Context, rawURL, name, category, area string) (string, bool)
}

// Config controls navigation waits and retry bounds.
type Config struct {
	BaseURL          string
	Country          string
	MaxAttempts      int
	MaxWait          time.Duration
	MaxExecutionTime time.Duration
	RetryDelay       time.Duration
	SettleDelay      time.Duration
	ScrollPasses     int
	ScrollPause      time.Duration
	// MaxListings caps results per unit; zero means no cap.
	MaxListings int
}

// Extractor implements the per-unit state machine.
type Extractor struct {
	nav    crawler.Navigator
	sites  SiteScraper
	images ImageDownloader
	cfg    Config
	clock  crawler.Clock
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithSleep overrides how pauses between steps are waited.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Extractor) { e.sleep = sleep }
}

// New builds an Extractor.
func New(
	nav crawler.Navigator,
	sites SiteScraper,
	images ImageDownloader,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Extractor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxExecutionTime <= 0 {
		cfg.MaxExecutionTime = 300 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		nav:    nav,
		sites:  sites,
		images: images,
		cfg:    cfg,
		clock:  clock,
		logger: logger.Named("extractor"),
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs one search unit. Any returned error other than a context
// error is a soft unit failure: the caller records it and moves on. The
// listings slice is empty whenever err is non-nil.
func (e *Extractor) Extract(ctx context.Context, unit crawler.SearchUnit) ([]crawler.Listing, error) {
	logger := e.logger.With(zap.String("area", unit.Area), zap.String("category", unit.Category))
	start := e.clock.Now()

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if elapsed := e.clock.Now().Sub(start); elapsed >= e.cfg.MaxExecutionTime {
			logger.Warn("unit budget exceeded", zap.Duration("elapsed", elapsed), zap.Int("attempt", attempt))
			return nil, fmt.Errorf("%w after %s", ErrBudgetExceeded, elapsed)
		}

		listings, err := e.attempt(ctx, unit, logger)
		switch {
		case err == nil:
			metrics.AddListings(unit.Area, len(listings))
			logger.Info("unit extracted", zap.Int("listings", len(listings)), zap.Int("attempt", attempt))
			return listings, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, crawler.ErrNoResults):
			logger.Warn("no results for unit", zap.Error(err))
			return nil, err
		}

		lastErr = err
		logger.Warn("unit attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < e.cfg.MaxAttempts {
			if err := e.sleep(ctx, e.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, unit crawler.SearchUnit, logger *zap.Logger) ([]crawler.Listing, error) {
	// NAVIGATE
	if err := e.nav.Navigate(ctx, e.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
		return nil, err
	}
	if err := e.nav.Submit(ctx, SearchBox, unit.Query(e.cfg.Country), e.cfg.MaxWait); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	if err := e.sleep(ctx, e.cfg.SettleDelay); err != nil {
		return nil, err
	}

	// LOCATE_RESULTS
	container, err := e.locateFirst(ctx, ResultsContainers, e.cfg.MaxWait)
	if err != nil {
		return nil, fmt.Errorf("locate results: %w", err)
	}
	if container == nil {
		return nil, fmt.Errorf("%w: results container not found", crawler.ErrNoResults)
	}

	// SCROLL_LOAD
	for pass := 0; pass < e.cfg.ScrollPasses; pass++ {
		if err := e.nav.Scroll(ctx, container); err != nil {
			return nil, fmt.Errorf("scroll results: %w", err)
		}
		if err := e.sleep(ctx, e.cfg.ScrollPause); err != nil {
			return nil, err
		}
	}

	// ITERATE
	results, err := e.nav.LocateAll(ctx, ResultAnchor)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no listings in results", crawler.ErrNoResults)
	}
	if e.cfg.MaxListings > 0 && len(results) > e.cfg.MaxListings {
		results = results[:e.cfg.MaxListings]
	}

	listings := make([]crawler.Listing, 0, len(results))
	for i, result := range results {
		listing, err := e.extractListing(ctx, unit, result, logger)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("skipping listing", zap.Int("index", i), zap.Error(err))
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// locateFirst tries each locator in order and returns the first element
// found, or nil when none resolve.
func (e *Extractor) locateFirst(ctx context.Context, locators []crawler.Locator, wait time.Duration) (crawler.Element, error) {
	for _, loc := range locators {
		el, ok, err := e.nav.Locate(ctx, loc, wait)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", loc.Name, err)
		}
		if ok {
			return el, nil
		}
	}
	return nil, nil
}
