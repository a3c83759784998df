// Package verify checks a produced metadata table against the localization
// document it was generated from. It re-runs the normalization on the input
// and compares the result with the table phase by phase, so a table edited
// by hand or produced by another tool can be validated before it is
// published.
package verify

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/tabular"
)

// Options mirrors the conversion options the table was produced with.
type Options struct {
	Prefix         string
	MaxResidualRMS float64
}

// Phase tracks pass/fail for one group of checks.
type Phase struct {
	Name   string
	Errors []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase recorded no errors.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Report is the outcome of a verification run.
type Report struct {
	Phases   []*Phase
	Expected int // rows derived from the input document
	Actual   int // rows present in the table
}

// Passed reports whether every phase passed.
func (r Report) Passed() bool {
	for _, p := range r.Phases {
		if !p.Passed() {
			return false
		}
	}
	return true
}

// Run normalizes input and compares it with table. An error is returned
// only when either side cannot be read at all; mismatches are reported in
// the phases.
func Run(input []byte, table io.Reader, opts Options) (Report, error) {
	raw, err := domain.ParseDocument(input)
	if err != nil {
		return Report{}, fmt.Errorf("parse input: %w", err)
	}
	batch, err := domain.LoadBatch(raw, domain.LoadOptions{MaxResidualRMS: opts.MaxResidualRMS})
	if err != nil {
		return Report{}, fmt.Errorf("load input: %w", err)
	}
	expected := domain.Project(opts.Prefix, batch)

	header, rows, err := tabular.Read(table)
	if err != nil {
		return Report{}, err
	}

	report := Report{Expected: len(expected), Actual: len(rows)}
	report.Phases = []*Phase{
		checkHeader(header),
		checkRowCount(len(expected), len(rows)),
		checkEventIDs(expected, rows),
		checkRounding(rows),
		checkCells(expected, rows),
	}
	return report, nil
}

// ── Phase 1: Header ──

func checkHeader(header []string) *Phase {
	p := &Phase{Name: "Phase 1: Header"}
	want := domain.Columns()
	if !slices.Equal(header, want) {
		p.errorf("header: expected %s, got %s", strings.Join(want, ","), strings.Join(header, ","))
	}
	return p
}

// ── Phase 2: Row Count ──

func checkRowCount(expected, actual int) *Phase {
	p := &Phase{Name: "Phase 2: Row Count"}
	if expected != actual {
		p.errorf("rows: expected %d, got %d", expected, actual)
	}
	return p
}

// ── Phase 3: Event IDs ──
// Every id must end in its zero-padded row position and match the id
// recomputed from the input.

func checkEventIDs(expected []domain.NormalizedEvent, rows [][]string) *Phase {
	p := &Phase{Name: "Phase 3: Event IDs"}
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		id := cell(row, 0)
		if !strings.HasSuffix(id, "_"+domain.PadIndex(i)) {
			p.errorf("row %d: id %q does not end in _%s", i, id, domain.PadIndex(i))
		}
		if first, dup := seen[id]; dup {
			p.errorf("row %d: id %q duplicates row %d", i, id, first)
		} else {
			seen[id] = i
		}
		if i < len(expected) && id != expected[i].EventID {
			p.errorf("row %d: id expected %q, got %q", i, expected[i].EventID, id)
		}
	}
	return p
}

// ── Phase 4: Rounding ──
// tdoas and distance_residuals must already be at their output precision.

func checkRounding(rows [][]string) *Phase {
	p := &Phase{Name: "Phase 4: Rounding"}
	columns := []struct {
		name   string
		index  int
		places int
	}{
		{"tdoas", slices.Index(domain.Columns(), "tdoas"), domain.TDOAPlaces},
		{"distance_residuals", slices.Index(domain.Columns(), "distance_residuals"), domain.ResidualPlaces},
	}
	for i, row := range rows {
		for _, col := range columns {
			values, err := tabular.ParseFloatList(cell(row, col.index))
			if err != nil {
				p.errorf("row %d: %s: %v", i, col.name, err)
				continue
			}
			for j, v := range values {
				if r := domain.RoundTo(v, col.places); r != v {
					p.errorf("row %d: %s[%d] = %v not rounded to %d places", i, col.name, j, v, col.places)
				}
			}
		}
	}
	return p
}

// ── Phase 5: Cell Values ──
// Every cell must equal the rendering of the recomputed event.

func checkCells(expected []domain.NormalizedEvent, rows [][]string) *Phase {
	p := &Phase{Name: "Phase 5: Cell Values"}
	columns := domain.Columns()
	for i, row := range rows {
		if i >= len(expected) {
			break
		}
		want, err := tabular.Row(expected[i])
		if err != nil {
			p.errorf("row %d: %v", i, err)
			continue
		}
		for j, name := range columns {
			if got := cell(row, j); got != want[j] {
				p.errorf("row %d: %s: expected %s, got %s", i, name, want[j], got)
			}
		}
	}
	return p
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Write prints a human-readable summary followed by detailed errors.
func (r Report) Write(w io.Writer) {
	fmt.Fprintln(w, "=== Localized Events Table Verification ===")
	fmt.Fprintln(w)
	for _, p := range r.Phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.Errors))
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.Name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d expected, %d in table\n", r.Expected, r.Actual)

	for _, p := range r.Phases {
		if p.Passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if r.Passed() {
		fmt.Fprintln(w, "\nAll verifications passed.")
		return
	}
	fmt.Fprintln(w, "\nVerification FAILED.")
}
