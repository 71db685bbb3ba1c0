package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/directory-crawler/internal/crawler"
)

// Ledger remembers completed search units for the life of the process.
type Ledger struct {
	mu   sync.RWMutex
	done map[string]struct{}
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{done: make(map[string]struct{})}
}

// Done reports whether unit was marked.
func (l *Ledger) Done(_ context.Context, unit crawler.SearchUnit) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.done[unit.Key()]
	return ok, nil
}

// MarkDone marks unit as completed.
func (l *Ledger) MarkDone(_ context.Context, unit crawler.SearchUnit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done[unit.Key()] = struct{}{}
	return nil
}
