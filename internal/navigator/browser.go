// Package navigator implements crawler.Navigator over a single headless
// Chrome tab driven by chromedp. Elements are addressed by XPath and
// re-resolved on every action, so a node that left the page surfaces as an
// error from the element method that touched it.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/fetcher/retry"
)

// ErrStartup reports that the browser could not be started.
var ErrStartup = errors.New("browser startup failed")

// Config controls browser launch and action timeouts.
type Config struct {
	Headless          bool
	UserAgent         string
	WindowWidth       int
	WindowHeight      int
	StartPort         int
	PortSpan          int
	StartAttempts     int
	StartRetryDelay   time.Duration
	ExecPath          string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
}

func (c *Config) applyDefaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.StartPort <= 0 {
		c.StartPort = 9515
	}
	if c.PortSpan <= 0 {
		c.PortSpan = 100
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = 3
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 45 * time.Second
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 10 * time.Second
	}
}

// Browser is a started Chrome instance with one tab.
type Browser struct {
	cfg         Config
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	logger      *zap.Logger
	closeOnce   sync.Once
}

// FindAvailablePort returns the first port in [start, start+span) with no
// listener on localhost.
func FindAvailablePort(start, span int) (int, error) {
	for port := start; port < start+span; port++ {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 200*time.Millisecond)
		if err != nil {
			return port, nil
		}
		_ = conn.Close()
	}
	return 0, fmt.Errorf("no available port in range %d-%d", start, start+span-1)
}

func allocatorOptions(cfg Config, port int) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("remote-debugging-port", strconv.Itoa(port)),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Start probes for a debugging port and launches the browser, retrying up
// to StartAttempts times. Failure wraps ErrStartup.
func Start(ctx context.Context, cfg Config, logger *zap.Logger) (*Browser, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("navigator")

	var lastErr error
	for attempt := 1; attempt <= cfg.StartAttempts; attempt++ {
		b, err := launch(ctx, cfg, logger)
		if err == nil {
			logger.Info("browser started", zap.Int("attempt", attempt))
			return b, nil
		}
		lastErr = err
		logger.Warn("browser start failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < cfg.StartAttempts {
			if err := retry.Sleep(ctx, cfg.StartRetryDelay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrStartup, err)
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrStartup, cfg.StartAttempts, lastErr)
}

func launch(ctx context.Context, cfg Config, logger *zap.Logger) (*Browser, error) {
	port, err := FindAvailablePort(cfg.StartPort, cfg.PortSpan)
	if err != nil {
		return nil, err
	}
	// The browser outlives cancellation of ctx so the run can wind down cleanly.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg, port)...)
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run on a fresh tab starts Chrome under that Run's context, so it
	// must carry no deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup on port %d: %w", port, err)
	}

	b := &Browser{
		cfg:         cfg,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
	}
	if err := b.run(ctx, cfg.NavigationTimeout, b.setupAction()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("launch on port %d: %w", port, err)
	}
	return b, nil
}

func (b *Browser) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the load event.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, b.cfg.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Submit types text into input followed by Enter.
func (b *Browser) Submit(ctx context.Context, input crawler.Locator, text string, wait time.Duration) error {
	if wait <= 0 {
		wait = b.cfg.ActionTimeout
	}
	err := b.run(ctx, wait,
		chromedp.WaitReady(input.XPath, chromedp.BySearch),
		chromedp.SendKeys(input.XPath, text+kb.Enter, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("submit %s: %w", input.Name, err)
	}
	return nil
}

// Locate resolves loc against the whole page.
func (b *Browser) Locate(ctx context.Context, loc crawler.Locator, wait time.Duration) (crawler.Element, bool, error) {
	return b.locate(ctx, loc.XPath, wait)
}

// LocateAll resolves every match of loc on the page.
func (b *Browser) LocateAll(ctx context.Context, loc crawler.Locator) ([]crawler.Element, error) {
	return b.locateAll(ctx, loc.XPath)
}

func (b *Browser) locate(ctx context.Context, xpath string, wait time.Duration) (crawler.Element, bool, error) {
	n, err := b.count(ctx, xpath, wait)
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	return &element{browser: b, xpath: nth(xpath, 1)}, true, nil
}

func (b *Browser) locateAll(ctx context.Context, xpath string) ([]crawler.Element, error) {
	n, err := b.count(ctx, xpath, 0)
	if err != nil {
		return nil, err
	}
	out := make([]crawler.Element, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &element{browser: b, xpath: nth(xpath, i)})
	}
	return out, nil
}

// count returns the number of nodes matching xpath. A positive wait polls
// until at least one node appears or wait elapses.
func (b *Browser) count(ctx context.Context, xpath string, wait time.Duration) (int, error) {
	var nodes []*cdp.Node
	if wait <= 0 {
		if err := b.run(ctx, b.cfg.ActionTimeout, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
			return 0, fmt.Errorf("query %s: %w", xpath, err)
		}
		return len(nodes), nil
	}
	err := b.run(ctx, wait, chromedp.Nodes(xpath, &nodes, chromedp.BySearch))
	switch {
	case err == nil:
		return len(nodes), nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("wait for %s: %w", xpath, err)
	}
}

// Scroll sets the element's scrollTop to its scrollHeight.
func (b *Browser) Scroll(ctx context.Context, el crawler.Element) error {
	e, ok := el.(*element)
	if !ok {
		return fmt.Errorf("scroll: foreign element %T", el)
	}
	var found bool
	if err := b.run(ctx, b.cfg.ActionTimeout, chromedp.Evaluate(scrollScript(e.xpath), &found)); err != nil {
		return fmt.Errorf("scroll %s: %w", e.xpath, err)
	}
	if !found {
		return fmt.Errorf("scroll %s: element detached", e.xpath)
	}
	return nil
}

// CurrentURL returns the tab's location.
func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := b.run(ctx, b.cfg.ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return url, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close(_ context.Context) error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := chromedp.Cancel(b.tabCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("close browser: %w", cerr)
		}
		b.tabCancel()
		b.allocCancel()
		b.logger.Info("browser closed")
	})
	return err
}
