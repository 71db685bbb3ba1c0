// Package throttle bounds the number of outbound HTTP requests in flight
// across all callers of the process.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/directory-crawler/internal/metrics"
)

// DefaultCapacity and DefaultPollInterval match the crawler's standard budget.
const (
	DefaultCapacity     = 50
	DefaultPollInterval = 100 * time.Millisecond
)

// Gate is a counting admission gate. Acquire blocks by polling while the
// gate is saturated; the outstanding count never exceeds capacity and never
// drops below zero.
type Gate struct {
	mu          sync.Mutex
	capacity    int
	outstanding int
	poll        time.Duration
}

// New creates a Gate admitting at most capacity concurrent holders.
func New(capacity int, poll time.Duration) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate capacity must be > 0")
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Gate{capacity: capacity, poll: poll}, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	for {
		if g.tryAcquire() {
			metrics.ObserveGateWait(time.Since(start))
			return nil
		}
		timer := time.NewTimer(g.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("acquire gate slot: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (g *Gate) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outstanding >= g.capacity {
		return false
	}
	g.outstanding++
	metrics.SetGateInFlight(g.outstanding)
	return true
}

// Release frees a slot. Releasing an idle gate is a no-op.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outstanding == 0 {
		return
	}
	g.outstanding--
	metrics.SetGateInFlight(g.outstanding)
}

// Do runs fn while holding a slot. The slot is released on every exit path,
// including a panic in fn.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

// InFlight returns the current outstanding count.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outstanding
}

// Capacity returns the configured bound.
func (g *Gate) Capacity() int {
	return g.capacity
}
