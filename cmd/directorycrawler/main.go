package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/api"
	"github.com/JakeFAU/directory-crawler/internal/catalog"
	"github.com/JakeFAU/directory-crawler/internal/checkpoint"
	"github.com/JakeFAU/directory-crawler/internal/clock/system"
	"github.com/JakeFAU/directory-crawler/internal/config"
	"github.com/JakeFAU/directory-crawler/internal/extractor"
	"github.com/JakeFAU/directory-crawler/internal/id/uuid"
	"github.com/JakeFAU/directory-crawler/internal/logging"
	"github.com/JakeFAU/directory-crawler/internal/navigator"
	"github.com/JakeFAU/directory-crawler/internal/runner"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := 0
	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", zap.Error(err))
		code = 1
	}
	stop()
	if syncErr := logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))
	clock := system.New(time.Local)

	deps, err := buildDependencies(ctx, cfg, runID, clock, logger)
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	sched := checkpoint.New(checkpoint.Config{
		Interval:  cfg.Checkpoint.Interval,
		Duration:  cfg.Checkpoint.Duration,
		Dir:       cfg.Checkpoint.Dir,
		Prefix:    cfg.Checkpoint.Prefix,
		Extension: cfg.Checkpoint.Format,
	}, deps.sink, clock, logger, deps.observers...)

	browser, err := navigator.Start(ctx, navigator.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		StartPort:         cfg.Browser.StartPort,
		PortSpan:          cfg.Browser.PortSpan,
		StartAttempts:     cfg.Browser.StartAttempts,
		StartRetryDelay:   cfg.Browser.StartRetryDelay,
		ExecPath:          cfg.Browser.ExecPath,
		NavigationTimeout: cfg.Search.MaxWait,
		ActionTimeout:     cfg.Browser.ActionTimeout,
	}, logger)
	if err != nil {
		return runner.Abort(ctx, sched, err, logger)
	}

	ex := extractor.New(browser, deps.sites, deps.images, clock, extractor.Config{
		BaseURL:          cfg.Search.BaseURL,
		Country:          cfg.Search.Country,
		MaxAttempts:      cfg.Search.MaxAttempts,
		MaxWait:          cfg.Search.MaxWait,
		MaxExecutionTime: cfg.Search.MaxExecutionTime,
		RetryDelay:       cfg.Search.RetryDelay,
		SettleDelay:      cfg.Search.SettleDelay,
		ScrollPasses:     cfg.Search.ScrollPasses,
		ScrollPause:      cfg.Search.ScrollPause,
		MaxListings:      cfg.Search.MaxListings,
	}, logger)

	units := catalog.Units(cfg.Search.Areas, cfg.Search.Categories)
	r := runner.New(units, ex, sched, browser, runner.Config{
		UnitPause:        cfg.Search.UnitPause,
		FinalSaveTimeout: cfg.Checkpoint.FinalSaveTimeout,
	}, logger, runner.WithLedger(deps.ledger))

	if cfg.Server.Port > 0 {
		srv := api.NewServer(r, runID, api.Config{Port: cfg.Server.Port, APIKey: cfg.Server.APIKey}, logger.Named("api"))
		srvCtx, cancelSrv := context.WithCancel(context.WithoutCancel(ctx))
		defer cancelSrv()
		go func() {
			if err := srv.ListenAndServe(srvCtx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
				logger.Error("http server error", zap.Error(err))
			}
		}()
	}

	return r.Run(ctx)
}
