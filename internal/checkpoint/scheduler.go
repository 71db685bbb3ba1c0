// Package checkpoint accumulates extracted listings and persists full
// snapshots of them on a count cadence, a time cadence, and at run end.
package checkpoint

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
	"github.com/JakeFAU/directory-crawler/internal/metrics"
)

// TimestampLayout formats snapshot timestamps as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// SnapshotName returns "<prefix>_<kind>_<ts>.<ext>", dropping the kind for
// plain snapshots and the prefix when empty.
func SnapshotName(prefix string, kind crawler.SnapshotKind, at time.Time, ext string) string {
	name := at.Format(TimestampLayout)
	if kind != crawler.SnapshotPlain {
		name = string(kind) + "_" + name
	}
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name + "." + ext
}

// Config controls snapshot cadence and naming.
type Config struct {
	Interval  int
	Duration  time.Duration
	Dir       string
	Prefix    string
	Extension string
}

// Progress is a point-in-time view of the scheduler.
type Progress struct {
	UnitsProcessed int       `json:"units_processed"`
	Accumulated    int       `json:"listings_accumulated"`
	LastSave       time.Time `json:"last_save"`
	Snapshots      int       `json:"snapshots_written"`
}

// Scheduler owns the in-memory accumulator. Append and UnitDone are called
// from the single traversal goroutine; Progress may be read concurrently.
type Scheduler struct {
	cfg       Config
	sink      crawler.Sink
	observers []crawler.SnapshotObserver
	clock     crawler.Clock
	logger    *zap.Logger

	mu        sync.RWMutex
	listings  []crawler.Listing
	processed int
	tick      time.Time
	lastSave  time.Time
	snapshots int
}

// New builds a Scheduler. The time cadence starts at construction.
func New(cfg Config, sink crawler.Sink, clock crawler.Clock, logger *zap.Logger, observers ...crawler.SnapshotObserver) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Minute
	}
	if cfg.Extension == "" {
		cfg.Extension = "xlsx"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:       cfg,
		sink:      sink,
		observers: observers,
		clock:     clock,
		logger:    logger.Named("checkpoint"),
		tick:      clock.Now(),
	}
}

// Append adds listings to the accumulator.
func (s *Scheduler) Append(listings ...crawler.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, listings...)
}

// UnitDone records a completed search unit and writes a partial snapshot
// when the count cadence (with a non-empty accumulator) or the time cadence
// is due. Both cadences firing at the same boundary produce one snapshot.
// Only the time cadence restarts its timer.
func (s *Scheduler) UnitDone(ctx context.Context) (crawler.Snapshot, bool, error) {
	s.mu.Lock()
	s.processed++
	countDue := s.processed%s.cfg.Interval == 0 && len(s.listings) > 0
	now := s.clock.Now()
	timeDue := now.Sub(s.tick) >= s.cfg.Duration
	if timeDue {
		s.tick = now
	}
	s.mu.Unlock()

	if !countDue && !timeDue {
		return crawler.Snapshot{}, false, nil
	}
	snap, err := s.save(ctx, crawler.SnapshotPartial)
	if err != nil {
		return crawler.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Finish writes the terminal snapshot of kind. An empty accumulator is
// logged and nothing is written.
func (s *Scheduler) Finish(ctx context.Context, kind crawler.SnapshotKind) (crawler.Snapshot, bool, error) {
	s.mu.RLock()
	empty := len(s.listings) == 0
	s.mu.RUnlock()
	if empty {
		s.logger.Warn("no data collected, skipping snapshot", zap.String("kind", kind.String()))
		return crawler.Snapshot{}, false, nil
	}
	snap, err := s.save(ctx, kind)
	if err != nil {
		return crawler.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Progress returns the current counters.
func (s *Scheduler) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Progress{
		UnitsProcessed: s.processed,
		Accumulated:    len(s.listings),
		LastSave:       s.lastSave,
		Snapshots:      s.snapshots,
	}
}

// save rewrites the whole accumulator to a fresh timestamped file.
func (s *Scheduler) save(ctx context.Context, kind crawler.SnapshotKind) (crawler.Snapshot, error) {
	s.mu.RLock()
	listings := append([]crawler.Listing(nil), s.listings...)
	s.mu.RUnlock()

	now := s.clock.Now()
	snap := crawler.Snapshot{
		Kind:      kind,
		Path:      filepath.Join(s.cfg.Dir, SnapshotName(s.cfg.Prefix, kind, now, s.cfg.Extension)),
		Rows:      len(listings),
		WrittenAt: now,
	}
	if err := s.sink.Write(ctx, snap.Path, crawler.Columns, crawler.Rows(listings)); err != nil {
		return crawler.Snapshot{}, fmt.Errorf("write %s snapshot: %w", kind.String(), err)
	}

	s.mu.Lock()
	s.snapshots++
	s.lastSave = now
	s.mu.Unlock()

	metrics.ObserveSnapshot(kind.String())
	s.logger.Info("snapshot written",
		zap.String("kind", kind.String()),
		zap.String("path", snap.Path),
		zap.Int("rows", snap.Rows),
	)

	for _, o := range s.observers {
		if err := o.OnSnapshot(ctx, snap, listings); err != nil {
			s.logger.Warn("snapshot observer failed", zap.String("path", snap.Path), zap.Error(err))
		}
	}
	return snap, nil
}
