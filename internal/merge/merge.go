// =============================================================================
// Submission Merger - Merge Engine
// =============================================================================
//
// The merge engine concatenates the tables referenced by one group of
// submissions into a single table and records one payment entry per
// submission that contributed rows.
//
// PER SUBMISSION, IN ORDER:
//   1. Extract the document ID from the link       (types.ErrInvalidURL)
//   2. Fetch the configured sheet                  (types.ErrSourceSheetMissing,
//                                                   types.ErrFetchFailure)
//   3. Skip empty tables silently
//   4. Reconcile headers:
//      - the first table fetched sets the master header and is appended whole
//      - a later table whose first row equals the master header contributes
//        only the rows after it
//      - any other table is assumed headerless and appended whole
//   5. Record a payment entry with TotalID = fetched rows - 1, when positive
//
// A failing submission is recorded in Result.Errors and skipped; it never
// stops the rest of the group.
//
// =============================================================================

package merge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/ledger"
	"github.com/ginjaninja78/submission-merger/internal/source"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Engine merges submission groups.
type Engine struct {
	source source.TableSource
	sheet  string
	log    *zap.Logger
}

// NewEngine creates a merge engine.
//
// PARAMETERS:
//   - src: Where submitted documents are fetched from.
//   - sheet: The sheet read from every submitted document.
//   - logger: Structured logger; nil means no logging.
func NewEngine(src source.TableSource, sheet string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: src, sheet: sheet, log: logger}
}

// Result holds the outcome of merging one group.
type Result struct {
	// Category is the group that was merged.
	Category string

	// Table is the merged table. Nil when no submission contributed rows.
	Table types.Table

	// Entries has one payment entry per submission that contributed IDs.
	Entries []types.PaymentEntry

	// Errors has one human-readable message per failed submission.
	Errors []string

	// Failures carries the same failures with their errors intact.
	Failures []Failure

	// Processed counts submissions whose table was fetched.
	Processed int

	// Skipped counts submissions that failed or returned an empty table.
	Skipped int
}

// Merge merges the tables referenced by records.
//
// PARAMETERS:
//   - ctx: Passed to every fetch.
//   - category: The group's category, used for logging and the result.
//   - records: The group's submissions in order.
//
// RETURNS:
//   - The merge result. Per-submission failures are reported inside it.
func (e *Engine) Merge(ctx context.Context, category string, records []types.SubmissionRecord) *Result {
	result := &Result{Category: category}
	log := e.log.With(zap.String("category", category))

	var masterHeader types.Row

	for i, rec := range records {
		docID, err := source.ExtractDocumentID(rec.SourceURL)
		if err != nil {
			e.fail(log, result, i, rec, err)
			continue
		}

		table, err := e.source.Fetch(ctx, docID, e.sheet)
		if err != nil {
			e.fail(log, result, i, rec, err)
			continue
		}
		table = table.Clone()

		if len(table) == 0 {
			log.Debug("merge: empty table skipped", zap.String("document_id", docID))
			result.Skipped++
			continue
		}
		result.Processed++

		switch {
		case masterHeader == nil:
			masterHeader = table[0].Clone()
			result.Table = append(result.Table, table...)
		case table[0].Equal(masterHeader):
			result.Table = append(result.Table, table[1:]...)
		default:
			log.Debug("merge: header differs, appending all rows",
				zap.String("document_id", docID),
				zap.Strings("header", table[0].Values()),
			)
			result.Table = append(result.Table, table...)
		}

		if len(table) >= 2 {
			result.Entries = append(result.Entries, ledger.NewEntry(rec, len(table)-1))
		}

		log.Info("merge: submission merged",
			zap.String("document_id", docID),
			zap.String("user_id", rec.UserID),
			zap.Int("rows", len(table)),
		)
	}

	return result
}

// Failure is one submission the engine had to skip.
type Failure struct {
	Index  int // 1-based position in the group
	Record types.SubmissionRecord
	Err    error
}

func (e *Engine) fail(log *zap.Logger, result *Result, i int, rec types.SubmissionRecord, err error) {
	msg := fmt.Sprintf("submission %d (%s, user %s): %v", i+1, rec.SourceURL, rec.UserID, err)
	result.Errors = append(result.Errors, msg)
	result.Failures = append(result.Failures, Failure{Index: i + 1, Record: rec, Err: err})
	result.Skipped++
	log.Warn("merge: submission skipped", zap.Int("index", i+1), zap.Error(err))
}
