// Package tabular renders normalized events as a CSV table with one header
// row and one row per event. Sequence cells hold Python list literals so
// existing consumers of the metadata tables can parse them back.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
)

// cellRenderers has one entry per output column. A column added to
// domain.Columns without a renderer makes Row fail.
var cellRenderers = map[string]func(domain.NormalizedEvent) string{
	"event_id":                func(e domain.NormalizedEvent) string { return e.EventID },
	"label":                   func(e domain.NormalizedEvent) string { return e.Label },
	"start_timestamp":         func(e domain.NormalizedEvent) string { return domain.RenderTimestamp(e.StartTimestamp) },
	"duration":                func(e domain.NormalizedEvent) string { return FormatNumber(e.Duration) },
	"position":                func(e domain.NormalizedEvent) string { return FormatNumbers(e.Position) },
	"file_ids":                func(e domain.NormalizedEvent) string { return FormatStrings(e.FileIDs) },
	"file_start_time_offsets": func(e domain.NormalizedEvent) string { return FormatNumbers(e.FileStartTimeOffsets) },
	"tdoas":                   func(e domain.NormalizedEvent) string { return FormatFloats(e.TDOAs) },
	"distance_residuals":      func(e domain.NormalizedEvent) string { return FormatFloats(e.DistanceResiduals) },
}

// Row renders one event's cells in column order.
func Row(e domain.NormalizedEvent) ([]string, error) {
	cols := domain.Columns()
	row := make([]string, len(cols))
	for i, col := range cols {
		render, ok := cellRenderers[col]
		if !ok {
			return nil, fmt.Errorf("no cell renderer for column %q", col)
		}
		row[i] = render(e)
	}
	return row, nil
}

// Writer streams a table to an io.Writer. The header is written before the
// first row, or by Flush for an empty table.
type Writer struct {
	csv           *csv.Writer
	headerWritten bool
}

// NewWriter creates a table writer using "\n" line endings.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

func (w *Writer) writeHeader() error {
	if w.headerWritten {
		return nil
	}
	w.headerWritten = true
	if err := w.csv.Write(domain.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Write appends one event row.
func (w *Writer) Write(e domain.NormalizedEvent) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	row, err := Row(e)
	if err != nil {
		return err
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("write row %s: %w", e.EventID, err)
	}
	return nil
}

// Flush writes any buffered data, including the header of an empty table.
func (w *Writer) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

// WriteAll writes the header and all events, then flushes.
func WriteAll(w io.Writer, events []domain.NormalizedEvent) error {
	tw := NewWriter(w)
	for i := range events {
		if err := tw.Write(events[i]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Encode renders the complete table in memory.
func Encode(events []domain.NormalizedEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteAll(&buf, events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses a table produced by WriteAll into its header and rows.
func Read(r io.Reader) ([]string, [][]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("read table: missing header row")
	}
	return records[0], records[1:], nil
}
