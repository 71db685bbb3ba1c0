package memory

import (
	"context"
	"sync"
)

// Write captures one snapshot handed to Sink.
type Write struct {
	Path    string
	Columns []string
	Rows    [][]string
}

// Sink records snapshots instead of writing files.
type Sink struct {
	mu     sync.Mutex
	writes []Write
	err    error
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// FailWith makes subsequent writes return err; nil restores success.
func (s *Sink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Write implements crawler.Sink.
func (s *Sink) Write(_ context.Context, path string, columns []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	s.writes = append(s.writes, Write{Path: path, Columns: append([]string(nil), columns...), Rows: copied})
	return nil
}

// Writes returns the recorded snapshots in order.
func (s *Sink) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}
