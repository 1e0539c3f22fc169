// =============================================================================
// Submission Merger - Payment Ledger
// =============================================================================
//
// The ledger turns per-submission ID counts into payment amounts.
//
// LIFECYCLE:
//   1. Merge run:  NewEntry records one entry per processed submission with
//                  its ID count and a zero amount.
//   2. Report run: Finalize fills in amount = TotalID x rate for copies of the
//                  entries and computes the totals, deducting one rate per
//                  bad ID.
//
// All money is decimal.Decimal so that repeated sums never drift.
//
// =============================================================================

package ledger

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// NewEntry creates the payment entry for a merged submission. The amount is
// zero until Finalize runs.
func NewEntry(rec types.SubmissionRecord, totalID int) types.PaymentEntry {
	return types.PaymentEntry{
		Method:  rec.PaymentMethod,
		Number:  rec.PaymentNumber,
		TotalID: totalID,
		Amount:  decimal.Zero,
		UserID:  rec.UserID,
		Type:    rec.SubmissionType,
	}
}

// Finalized is the result of a finalize pass.
type Finalized struct {
	// Entries are copies of the input entries with Amount filled.
	Entries []types.PaymentEntry

	Rate        decimal.Decimal
	TotalIDs    int
	TotalAmount decimal.Decimal
	BadIDs      int
	Deduction   decimal.Decimal
	FinalAmount decimal.Decimal
}

// Finalize computes amounts and totals.
//
// PARAMETERS:
//   - entries: The entries recorded at merge time. They are not modified.
//   - rate: The amount paid per ID. Must not be negative.
//   - badIDs: The number of IDs the report run classified as bad.
//
// RETURNS:
//   - The finalized ledger.
//   - types.ErrInvalidRate for a negative rate; an error for negative badIDs.
func Finalize(entries []types.PaymentEntry, rate decimal.Decimal, badIDs int) (*Finalized, error) {
	if rate.IsNegative() {
		return nil, eris.Wrapf(types.ErrInvalidRate, "ledger: rate %s is negative", rate)
	}
	if badIDs < 0 {
		return nil, eris.Errorf("ledger: bad id count %d is negative", badIDs)
	}

	out := &Finalized{
		Entries:     make([]types.PaymentEntry, len(entries)),
		Rate:        rate,
		TotalAmount: decimal.Zero,
		BadIDs:      badIDs,
	}

	for i, e := range entries {
		e.Amount = rate.Mul(decimal.NewFromInt(int64(e.TotalID)))
		out.Entries[i] = e
		out.TotalIDs += e.TotalID
		out.TotalAmount = out.TotalAmount.Add(e.Amount)
	}

	out.Deduction = rate.Mul(decimal.NewFromInt(int64(badIDs)))
	out.FinalAmount = out.TotalAmount.Sub(out.Deduction)

	return out, nil
}

// ParseRate parses a user-supplied per-ID rate.
//
// RETURNS:
//   - The rate.
//   - types.ErrInvalidRate if the input is empty, not a number, or negative.
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, eris.Wrap(types.ErrInvalidRate, "ledger: rate is empty")
	}

	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, eris.Wrapf(types.ErrInvalidRate, "ledger: rate %q is not a number", s)
	}
	if rate.IsNegative() {
		return decimal.Zero, eris.Wrapf(types.ErrInvalidRate, "ledger: rate %s is negative", rate)
	}
	return rate, nil
}
