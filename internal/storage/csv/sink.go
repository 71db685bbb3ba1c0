// Package csv writes listing snapshots as UTF-8 CSV files.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Sink implements crawler.Sink with encoding/csv.
type Sink struct{}

// New returns a Sink.
func New() *Sink {
	return &Sink{}
}

// Write replaces path with a header row followed by rows. The file is
// written to a temporary sibling and renamed into place.
func (s *Sink) Write(ctx context.Context, path string, columns []string, rows [][]string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
