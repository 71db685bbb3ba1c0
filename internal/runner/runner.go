// Package runner drives the sequential traversal of search units: one unit
// at a time through the extractor, feeding the checkpoint scheduler and
// writing exactly one terminal snapshot however the run ends.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/checkpoint"
	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/fetcher/retry"
	"github.com/JakeFAU/directory-crawler/internal/metrics"
)

// Extractor runs one search unit.
type Extractor interface {
	Extract(ctx context.Context, unit crawler.SearchUnit) ([]crawler.Listing, error)
}

// Checkpointer accumulates listings and writes snapshots.
type Checkpointer interface {
	Append(listings ...crawler.Listing)
	UnitDone(ctx context.Context) (crawler.Snapshot, bool, error)
	Finish(ctx context.Context, kind crawler.SnapshotKind) (crawler.Snapshot, bool, error)
	Progress() checkpoint.Progress
}

// Closer releases the page session once the terminal snapshot is written.
type Closer interface {
	Close(ctx context.Context) error
}

// State is the lifecycle of a run.
type State string

// Run states.
const (
	StatePending     State = "pending"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateInterrupted State = "interrupted"
	StateFailed      State = "failed"
)

// Config controls pacing and shutdown.
type Config struct {
	UnitPause        time.Duration
	FinalSaveTimeout time.Duration
}

// Status is the live view served by the ops API.
type Status struct {
	checkpoint.Progress
	State       State  `json:"state"`
	TotalUnits  int    `json:"total_units"`
	Skipped     int    `json:"units_skipped"`
	Failed      int    `json:"units_failed"`
	CurrentUnit string `json:"current_unit,omitempty"`
}

// Runner owns the traversal loop.
type Runner struct {
	units     []crawler.SearchUnit
	extractor Extractor
	ckpt      Checkpointer
	session   Closer
	ledger    crawler.UnitLedger
	cfg       Config
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error

	mu      sync.RWMutex
	state   State
	current string
	skipped int
	failed  int
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSleep overrides the pause between units.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// WithLedger skips units already completed by an earlier run and records
// each unit as it completes.
func WithLedger(ledger crawler.UnitLedger) Option {
	return func(r *Runner) { r.ledger = ledger }
}

// New builds a Runner over units.
func New(
	units []crawler.SearchUnit,
	extractor Extractor,
	ckpt Checkpointer,
	session Closer,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *Runner {
	if cfg.FinalSaveTimeout <= 0 {
		cfg.FinalSaveTimeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		units:     units,
		extractor: extractor,
		ckpt:      ckpt,
		session:   session,
		cfg:       cfg,
		logger:    logger.Named("runner"),
		sleep:     retry.Sleep,
		state:     StatePending,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every unit in order. It returns nil on completion and the
// context error when interrupted. A panic is re-raised after the terminal
// snapshot has been written.
func (r *Runner) Run(ctx context.Context) (err error) {
	r.setState(StateRunning)
	r.logger.Info("run started", zap.Int("units", len(r.units)))

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("run panicked", zap.Any("panic", rec))
			r.finish(ctx, crawler.SnapshotFinal, StateFailed)
			panic(rec)
		}
		switch {
		case ctx.Err() != nil:
			r.finish(ctx, crawler.SnapshotInterrupted, StateInterrupted)
		case err != nil:
			r.finish(ctx, crawler.SnapshotFinal, StateFailed)
		default:
			r.finish(ctx, crawler.SnapshotPlain, StateCompleted)
		}
	}()

	for i, unit := range r.units {
		if ctx.Err() != nil {
			break
		}
		if r.alreadyDone(ctx, unit) {
			continue
		}
		r.setCurrent(unit.Key())

		listings, uerr := r.extractor.Extract(ctx, unit)
		if ctx.Err() != nil {
			break
		}
		if uerr != nil {
			r.mu.Lock()
			r.failed++
			r.mu.Unlock()
			metrics.ObserveUnit("failed")
			r.logger.Warn("unit failed",
				zap.String("area", unit.Area),
				zap.String("category", unit.Category),
				zap.Error(uerr),
			)
		} else {
			metrics.ObserveUnit("ok")
			r.ckpt.Append(listings...)
		}

		if _, _, serr := r.ckpt.UnitDone(ctx); serr != nil {
			r.logger.Error("partial snapshot failed", zap.Error(serr))
		}
		r.markDone(ctx, unit)

		if i < len(r.units)-1 && r.cfg.UnitPause > 0 {
			if err := r.sleep(ctx, r.cfg.UnitPause); err != nil {
				break
			}
		}
	}
	r.setCurrent("")
	return ctx.Err()
}

func (r *Runner) alreadyDone(ctx context.Context, unit crawler.SearchUnit) bool {
	if r.ledger == nil {
		return false
	}
	done, err := r.ledger.Done(ctx, unit)
	if err != nil {
		r.logger.Warn("ledger lookup failed", zap.String("unit", unit.Key()), zap.Error(err))
		return false
	}
	if done {
		r.mu.Lock()
		r.skipped++
		r.mu.Unlock()
		metrics.ObserveUnit("skipped")
		r.logger.Debug("unit already completed", zap.String("unit", unit.Key()))
	}
	return done
}

func (r *Runner) markDone(ctx context.Context, unit crawler.SearchUnit) {
	if r.ledger == nil {
		return
	}
	if err := r.ledger.MarkDone(ctx, unit); err != nil {
		r.logger.Warn("ledger update failed", zap.String("unit", unit.Key()), zap.Error(err))
	}
}

// finish writes the terminal snapshot and then releases the session. It
// runs on a context detached from ctx so an interrupt cannot cut it short.
func (r *Runner) finish(ctx context.Context, kind crawler.SnapshotKind, state State) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.FinalSaveTimeout)
	defer cancel()

	if snap, ok, err := r.ckpt.Finish(saveCtx, kind); err != nil {
		r.logger.Error("terminal snapshot failed", zap.String("kind", kind.String()), zap.Error(err))
	} else if ok {
		r.logger.Info("terminal snapshot written", zap.String("kind", kind.String()), zap.String("path", snap.Path))
	}

	if r.session != nil {
		if err := r.session.Close(saveCtx); err != nil {
			r.logger.Warn("close page session failed", zap.Error(err))
		}
	}
	r.setState(state)
	p := r.ckpt.Progress()
	r.logger.Info("run finished",
		zap.String("state", string(state)),
		zap.Int("units_processed", p.UnitsProcessed),
		zap.Int("listings", p.Accumulated),
	)
}

// Status returns a snapshot of run progress.
func (r *Runner) Status() Status {
	p := r.ckpt.Progress()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{
		Progress:    p,
		State:       r.state,
		TotalUnits:  len(r.units),
		Skipped:     r.skipped,
		Failed:      r.failed,
		CurrentUnit: r.current,
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) setCurrent(key string) {
	r.mu.Lock()
	r.current = key
	r.mu.Unlock()
}

// Abort writes a failure snapshot for a run that could not start, for
// example when the page session never came up.
func Abort(ctx context.Context, ckpt Checkpointer, cause error, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, _, err := ckpt.Finish(context.WithoutCancel(ctx), crawler.SnapshotFinal); err != nil {
		return errors.Join(cause, fmt.Errorf("terminal snapshot: %w", err))
	}
	logger.Named("runner").Error("run aborted", zap.Error(cause))
	return cause
}
