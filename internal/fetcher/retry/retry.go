// Package retry wraps a single-shot crawler.Fetcher with a bounded,
// constant-delay retry loop. Every attempt passes through the throttle gate
// and, when configured, a per-host rate limiter.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/metrics"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxRetries = 3
	DefaultDelay      = 500 * time.Millisecond
)

var errRejected = errors.New("response rejected")

// Gate admits attempts into the bounded in-flight pool.
type Gate interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// Waiter paces attempts per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls the retry loop.
type Config struct {
	// Kind labels metrics and logs ("image", "site").
	Kind       string
	MaxRetries int
	Delay      time.Duration
}

// Fetcher implements crawler.RetryFetcher.
type Fetcher struct {
	transport crawler.Fetcher
	gate      Gate
	limiter   Waiter
	cfg       Config
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLimiter paces attempts through w before they enter the gate.
func WithLimiter(w Waiter) Option {
	return func(f *Fetcher) { f.limiter = w }
}

// WithSleep overrides how the delay between attempts is waited.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// New builds a retrying fetcher over transport.
func New(transport crawler.Fetcher, gate Gate, cfg Config, logger *zap.Logger, opts ...Option) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Delay < 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Kind == "" {
		cfg.Kind = "resource"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		transport: transport,
		gate:      gate,
		cfg:       cfg,
		logger:    logger.Named("retry").With(zap.String("kind", cfg.Kind)),
		sleep:     Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ImageContent accepts any image/* Content-Type.
func ImageContent(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Fetch issues up to MaxRetries attempts and returns the first acceptable
// response. A 2xx response is acceptable when accept is nil or approves its
// Content-Type. Exhaustion or cancellation yields ok=false.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest, accept crawler.ContentPredicate) (crawler.FetchResponse, bool) {
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return crawler.FetchResponse{}, false
		}
		resp, err := f.attempt(ctx, request, accept)
		if err == nil {
			metrics.ObserveFetchAttempt(f.cfg.Kind, "ok")
			return resp, true
		}
		f.logAttempt(request.URL, attempt, resp, err)

		if attempt < f.cfg.MaxRetries {
			if err := f.sleep(ctx, f.cfg.Delay); err != nil {
				return crawler.FetchResponse{}, false
			}
		}
	}
	f.logger.Warn("fetch exhausted retries",
		zap.String("url", request.URL),
		zap.Int("attempts", f.cfg.MaxRetries),
		zap.Error(crawler.ErrNotFound),
	)
	return crawler.FetchResponse{}, false
}

func (f *Fetcher) attempt(ctx context.Context, request crawler.FetchRequest, accept crawler.ContentPredicate) (crawler.FetchResponse, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, request.URL); err != nil {
			return crawler.FetchResponse{}, err
		}
	}
	var resp crawler.FetchResponse
	err := f.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = f.transport.Fetch(ctx, request)
		return err
	})
	if err != nil {
		return crawler.FetchResponse{}, err
	}
	if !resp.OK() {
		return resp, errRejected
	}
	if accept != nil && !accept(resp.ContentType()) {
		return resp, errRejected
	}
	return resp, nil
}

func (f *Fetcher) logAttempt(url string, attempt int, resp crawler.FetchResponse, err error) {
	fields := []zap.Field{
		zap.String("url", url),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", f.cfg.MaxRetries),
	}
	outcome := "error"
	switch {
	case !errors.Is(err, errRejected):
		fields = append(fields, zap.Error(err))
	case !resp.OK():
		outcome = "bad_status"
		fields = append(fields, zap.Int("status", resp.StatusCode))
	default:
		outcome = "bad_content"
		fields = append(fields, zap.String("content_type", resp.ContentType()))
	}
	metrics.ObserveFetchAttempt(f.cfg.Kind, outcome)
	f.logger.Warn("fetch attempt failed", append(fields, zap.String("outcome", outcome))...)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
