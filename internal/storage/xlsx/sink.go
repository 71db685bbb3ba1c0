// Package xlsx writes listing snapshots as single-sheet spreadsheets.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet every snapshot is written to.
const DefaultSheet = "Sheet1"

// Sink implements crawler.Sink with excelize.
type Sink struct {
	sheet string
}

// New returns a Sink writing to DefaultSheet.
func New() *Sink {
	return &Sink{sheet: DefaultSheet}
}

// Write streams a header row and rows to a new workbook at path, replacing
// any existing file.
func (s *Sink) Write(ctx context.Context, path string, columns []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sw, err := f.NewStreamWriter(s.sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", cells(columns)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
