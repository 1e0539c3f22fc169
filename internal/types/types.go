// =============================================================================
// Submission Merger - Shared Types
// =============================================================================
//
// This package contains the data model shared by every pipeline stage, kept
// in one place to avoid import cycles. Types defined here are used by:
//   - source   (tables fetched from submitted documents)
//   - merge    (merged tables and payment entries)
//   - dedupe   (in-place row removal)
//   - report   (good/bad classification)
//   - ledger   (payment amounts)
//   - store    (named table persistence)
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CELL TYPES
// =============================================================================

// Mark is the good/bad annotation the report run places on a cell.
type Mark int

const (
	// MarkNone means the cell was never classified (or held no digits).
	MarkNone Mark = iota

	// MarkGood means the cell's digits appear in the good-ID set.
	MarkGood

	// MarkBad means the cell's digits are absent from the good-ID set.
	MarkBad
)

// String returns the label used in logs and persisted stores.
func (m Mark) String() string {
	switch m {
	case MarkGood:
		return "good"
	case MarkBad:
		return "bad"
	default:
		return ""
	}
}

// ParseMark is the inverse of Mark.String. Unknown labels map to MarkNone.
func ParseMark(s string) Mark {
	switch s {
	case "good":
		return MarkGood
	case "bad":
		return MarkBad
	default:
		return MarkNone
	}
}

// Cell is a single spreadsheet value.
type Cell struct {
	// Value is the cell's display value.
	Value string `json:"v"`

	// Highlight reports a non-default, non-white background fill. It is the
	// only presentation state the pipeline reads.
	Highlight bool `json:"h,omitempty"`

	// Mark is the classification written by the report run.
	Mark Mark `json:"m,omitempty"`
}

// =============================================================================
// TABLE TYPES
// =============================================================================

// Row is an ordered sequence of cells. Rows are not required to share a width.
type Row []Cell

// Table is an ordered sequence of rows. Row 0 is treated as the header
// wherever a stage needs one.
type Table []Row

// NewRow builds a row of plain (unhighlighted, unmarked) cells.
func NewRow(values ...string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = Cell{Value: v}
	}
	return row
}

// NewTable builds a table of plain cells from string rows.
func NewTable(rows [][]string) Table {
	table := make(Table, len(rows))
	for i, r := range rows {
		table[i] = NewRow(r...)
	}
	return table
}

// Values returns the row's cell values.
func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// Equal compares two rows cell-wise by value only.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i].Value != other[i].Value {
			return false
		}
	}
	return true
}

// Clone returns a copy of the row that shares no storage with r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Clone returns a deep copy of the table. Stages hand tables to each other
// by value, so a producer's later edits never leak into a consumer.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Clone()
	}
	return out
}

// Strings returns the table's values as plain string rows.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t))
	for i, r := range t {
		out[i] = r.Values()
	}
	return out
}

// Header returns row 0, or nil for an empty table.
func (t Table) Header() Row {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// =============================================================================
// SUBMISSION TYPES
// =============================================================================

// SubmissionRecord is one user-submitted reference to an external table plus
// the payment metadata that travels with it. The pipeline never modifies it.
type SubmissionRecord struct {
	// SourceURL is the link to the submitted spreadsheet document.
	SourceURL string `json:"sheetLink"`

	// Pin is the access pin supplied with the submission.
	Pin string `json:"sheetPin"`

	// PaymentMethod and PaymentNumber say where the submitter is paid.
	PaymentMethod string `json:"paymentMethod"`
	PaymentNumber string `json:"paymentNumber"`

	// UserID identifies the submitter.
	UserID string `json:"userId"`

	// Timestamp is recorded as received.
	Timestamp string `json:"timestamp"`

	// SubmissionType is the free-text type label; the grouper derives the
	// category from it.
	SubmissionType string `json:"submissionType"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// PaymentEntry is one row of payment accounting tied to a single submission.
//
// Amount stays zero from creation (during merge) until the ledger is
// finalized during the report run.
type PaymentEntry struct {
	Method  string
	Number  string
	TotalID int
	Amount  decimal.Decimal
	UserID  string
	Type    string
}
