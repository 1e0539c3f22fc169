// =============================================================================
// Submission Merger - Report Classifier
// =============================================================================
//
// The report classifier cross-references merged tables against a report
// table in which the confirmed ("good") IDs are highlighted.
//
// CLASSIFICATION:
//   - Good IDs are the digit-only parts of every non-empty, highlighted
//     report cell ("ID-101" contributes "101").
//   - Each merged cell whose value contains digits is marked good or bad.
//     The good/bad counts are per cell.
//   - A row is "Good" if any of its cells is good, otherwise "Bad". The
//     label is appended as a Status column.
//   - The header row is classified cell by cell like any other row, so a
//     header such as "Q1" counts toward the totals. Its Status value is the
//     column title.
//
// =============================================================================

package report

import (
	"strings"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Status column values.
const (
	StatusHeader = "Status"
	StatusGood   = "Good"
	StatusBad    = "Bad"
)

// GoodIDSet is the set of digit-only IDs highlighted in a report.
type GoodIDSet map[string]struct{}

// Contains reports whether id is a good ID.
func (s GoodIDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// DigitsOnly returns the ASCII digits of s in order.
func DigitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// BuildGoodIDSet collects the good IDs from a report table.
func BuildGoodIDSet(report types.Table) GoodIDSet {
	ids := make(GoodIDSet)
	for _, row := range report {
		for _, cell := range row {
			if !cell.Highlight || strings.TrimSpace(cell.Value) == "" {
				continue
			}
			if d := DigitsOnly(cell.Value); d != "" {
				ids[d] = struct{}{}
			}
		}
	}
	return ids
}

// Result holds the outcome of classifying one table.
type Result struct {
	// Table is the classified table with its Status column.
	Table types.Table

	// GoodCells and BadCells count classified cells, header included.
	GoodCells int
	BadCells  int

	// GoodRows and BadRows count data rows by their Status label.
	GoodRows int
	BadRows  int
}

// Classify marks every cell and row of t against ids.
//
// PARAMETERS:
//   - t: The merged table. It is classified in place; a Status column left
//     by an earlier run is replaced.
//   - ids: The good IDs.
//
// RETURNS:
//   - The classification result.
func Classify(t types.Table, ids GoodIDSet) *Result {
	t = StripStatus(t)
	res := &Result{Table: t}
	if len(t) == 0 {
		return res
	}

	width := len(t[0])

	for i, row := range t {
		rowGood := false
		for j := range row {
			d := DigitsOnly(row[j].Value)
			switch {
			case d == "":
				row[j].Mark = types.MarkNone
			case ids.Contains(d):
				row[j].Mark = types.MarkGood
				res.GoodCells++
				rowGood = true
			default:
				row[j].Mark = types.MarkBad
				res.BadCells++
			}
		}

		for len(row) < width {
			row = append(row, types.Cell{})
		}

		status := types.Cell{Value: StatusHeader}
		if i > 0 {
			if rowGood {
				status = types.Cell{Value: StatusGood, Mark: types.MarkGood}
				res.GoodRows++
			} else {
				status = types.Cell{Value: StatusBad, Mark: types.MarkBad}
				res.BadRows++
			}
		}
		t[i] = append(row, status)
	}

	return res
}

// StripStatus removes the Status column written by an earlier Classify.
// The column is only recognised when every data row as wide as the header
// ends in a Good or Bad cell carrying the matching mark, and at least one
// such row exists. A "Status" column that came from a source sheet is kept.
// Rows appended after that run, which carry no status, are left alone.
func StripStatus(t types.Table) types.Table {
	if len(t) == 0 {
		return t
	}
	header := t[0]
	if len(header) == 0 {
		return t
	}
	if last := header[len(header)-1]; last.Value != StatusHeader || last.Mark != types.MarkNone {
		return t
	}

	width := len(header)
	labelled := 0
	for _, row := range t[1:] {
		if len(row) < width {
			continue
		}
		if len(row) > width || !isStatusCell(row[width-1]) {
			return t
		}
		labelled++
	}
	if labelled == 0 {
		return t
	}

	t[0] = header[:width-1]
	for i := 1; i < len(t); i++ {
		if len(t[i]) == width {
			t[i] = t[i][:width-1]
		}
	}
	return t
}

// isStatusCell reports whether c is a row label written by Classify.
func isStatusCell(c types.Cell) bool {
	switch c.Value {
	case StatusGood:
		return c.Mark == types.MarkGood
	case StatusBad:
		return c.Mark == types.MarkBad
	}
	return false
}
