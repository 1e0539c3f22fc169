package ledger

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Column layout of a "<date> Payment" table.
const (
	colMethod = iota
	colNumber
	colTotalID
	colAmount
	colUserID
)

// SummaryLabel starts the summary block below the entries.
const SummaryLabel = "SUMMARY"

// Header returns the payment table header.
func Header() types.Row {
	return types.NewRow("Method", "Number", "Total Id", "Amount", "User ID")
}

// EntryRow renders an entry as a payment table row.
func EntryRow(e types.PaymentEntry) types.Row {
	return types.NewRow(
		e.Method,
		e.Number,
		strconv.Itoa(e.TotalID),
		formatAmount(e.Amount),
		e.UserID,
	)
}

// entriesEnd returns the index just past the last entry row: the first blank
// row or the SUMMARY row, whichever comes first.
func entriesEnd(t types.Table) int {
	for i := 1; i < len(t); i++ {
		if isBlank(t[i]) || cellAt(t[i], 0) == SummaryLabel {
			return i
		}
	}
	return len(t)
}

// AppendEntries adds entry rows to a payment table, dropping any summary
// block left by an earlier report run. The input table is not modified.
func AppendEntries(t types.Table, entries []types.PaymentEntry) types.Table {
	if len(t) == 0 {
		t = types.Table{Header()}
	}

	out := t[:entriesEnd(t)].Clone()
	for _, e := range entries {
		out = append(out, EntryRow(e))
	}
	return out
}

// ParseEntries reads the entry rows of a payment table.
func ParseEntries(t types.Table) ([]types.PaymentEntry, error) {
	if len(t) == 0 {
		return nil, nil
	}

	end := entriesEnd(t)
	entries := make([]types.PaymentEntry, 0, end-1)
	for i := 1; i < end; i++ {
		row := t[i]

		raw := strings.TrimSpace(cellAt(row, colTotalID))
		totalID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: row %d: total id %q", i+1, raw)
		}

		amount := decimal.Zero
		if a := strings.TrimSpace(cellAt(row, colAmount)); a != "" {
			if amount, err = decimal.NewFromString(a); err != nil {
				return nil, eris.Wrapf(err, "ledger: row %d: amount %q", i+1, a)
			}
		}

		entries = append(entries, types.PaymentEntry{
			Method:  cellAt(row, colMethod),
			Number:  cellAt(row, colNumber),
			TotalID: totalID,
			Amount:  amount,
			UserID:  cellAt(row, colUserID),
		})
	}
	return entries, nil
}

// Render writes a finalized ledger back into a payment table: entry rows
// carry their amounts and a fresh summary block follows them.
func Render(header types.Row, f *Finalized) types.Table {
	if len(header) == 0 {
		header = Header()
	}

	out := types.Table{header.Clone()}
	for _, e := range f.Entries {
		out = append(out, EntryRow(e))
	}

	out = append(out,
		types.Row{},
		types.NewRow(SummaryLabel),
		types.NewRow("Total IDs", strconv.Itoa(f.TotalIDs)),
		types.NewRow("Total Amount", formatAmount(f.TotalAmount)),
		types.NewRow("Bad IDs Deducted", strconv.Itoa(f.BadIDs)),
		types.NewRow("Final Amount", formatAmount(f.FinalAmount)),
	)
	return out
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func cellAt(row types.Row, i int) string {
	if i < len(row) {
		return row[i].Value
	}
	return ""
}

func isBlank(row types.Row) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}
