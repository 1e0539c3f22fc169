package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/dedupe"
	"github.com/ginjaninja78/submission-merger/internal/grouper"
	"github.com/ginjaninja78/submission-merger/internal/ledger"
	"github.com/ginjaninja78/submission-merger/internal/merge"
	"github.com/ginjaninja78/submission-merger/internal/report"
	"github.com/ginjaninja78/submission-merger/internal/store"
	"github.com/ginjaninja78/submission-merger/internal/types"
	"github.com/ginjaninja78/submission-merger/internal/validation"
	"github.com/ginjaninja78/submission-merger/pkg/utils"
)

// MergeResult represents the outcome of a merge run.
type MergeResult struct {
	RunID string
	Date  string

	// Submissions is the number of records read from the log.
	Submissions int

	// Processed and Failed total the per-group counts.
	Processed int
	Failed    int

	// Groups has one merge result per category, in first-seen order.
	Groups []*merge.Result

	// Tables describes each merged table written.
	Tables []utils.TableSummary

	// Entries are the payment entries appended to the payment table.
	Entries []types.PaymentEntry

	// Warnings are problems found while validating the log.
	Warnings []*validation.ValidationError

	// ErrorLog and SummaryLog are the run log paths ("" when not written).
	ErrorLog   string
	SummaryLog string
}

// Errors returns every per-submission error message of the run.
func (m *MergeResult) Errors() []string {
	var out []string
	for _, g := range m.Groups {
		out = append(out, g.Errors...)
	}
	return out
}

// Merge consumes the pending submissions.
//
// PARAMETERS:
//   - ctx: Passed to the store and every fetch.
//   - date: The "<date>" prefix of the tables written; empty means today.
//
// RETURNS:
//   - The run result. Per-submission failures are reported inside it.
//   - An error only when the store cannot be read or written.
//
// PROCESSING STEPS:
//  1. Read and validate the submissions log
//  2. Group submissions by category
//  3. Merge each group, then append and dedupe into "<date> <category>"
//  4. Append payment entries to "<date> Payment"
//  5. Clear the consumed submissions
//  6. Write the error log and run summary
func (r *Runner) Merge(ctx context.Context, date string) (*MergeResult, error) {
	start := r.now()
	result := &MergeResult{RunID: utils.NewRunID(), Date: r.resolveDate(date)}
	log := r.log.With(zap.String("run_id", result.RunID), zap.String("date", result.Date))

	// =========================================================================
	// STEP 1: READ THE SUBMISSIONS LOG
	// =========================================================================

	cols := r.cfg.Submissions.Columns
	logTable, err := r.store.Get(ctx, r.cfg.Submissions.Table)
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		logTable = nil
	case err != nil:
		return nil, eris.Wrap(err, "pipeline: read submissions")
	}

	records := ParseSubmissions(logTable, cols)
	result.Submissions = len(records)
	if len(records) == 0 {
		log.Info("merge: no pending submissions")
		return result, nil
	}

	checked := validation.ValidateLog(records, cols.HeaderRows+1)
	result.Warnings = checked.Warnings
	for _, w := range checked.Warnings {
		log.Warn("merge: submission log problem", zap.String("problem", w.Error()))
	}

	// =========================================================================
	// STEP 2-3: GROUP, MERGE, DEDUPE
	// =========================================================================

	groups := grouper.FromConfig(r.cfg.Grouping).Group(records)
	engine := merge.NewEngine(r.source, r.cfg.Merge.SourceSheet, log)

	var failures []utils.ErrorLogEntry

	for _, group := range groups {
		res := engine.Merge(ctx, group.Category, group.Records)
		result.Groups = append(result.Groups, res)
		result.Processed += res.Processed
		result.Failed += len(res.Failures)
		result.Entries = append(result.Entries, res.Entries...)

		for _, f := range res.Failures {
			failures = append(failures, utils.ErrorLogEntry{
				Timestamp:    r.now(),
				Category:     group.Category,
				Index:        f.Index,
				SourceURL:    f.Record.SourceURL,
				UserID:       f.Record.UserID,
				ErrorType:    types.Kind(f.Err),
				ErrorMessage: f.Err.Error(),
			})
		}

		if len(res.Table) == 0 {
			continue
		}

		summary, err := r.storeMerged(ctx, TableName(result.Date, group.Category), res.Table)
		if err != nil {
			return nil, err
		}
		result.Tables = append(result.Tables, summary)
		log.Info("merge: table written",
			zap.String("table", summary.Name),
			zap.Int("rows", summary.Rows),
			zap.Int("duplicates", summary.Removed),
		)
	}

	// =========================================================================
	// STEP 4: PAYMENT ENTRIES
	// =========================================================================

	if len(result.Entries) > 0 {
		name := PaymentTableName(result.Date)
		payments, _, err := r.store.GetOrCreate(ctx, name, ledger.Header())
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: open %s", name)
		}
		if err := r.store.Put(ctx, name, ledger.AppendEntries(payments, result.Entries)); err != nil {
			return nil, eris.Wrapf(err, "pipeline: write %s", name)
		}
	}

	// =========================================================================
	// STEP 5: CLEAR CONSUMED SUBMISSIONS
	// =========================================================================

	if r.cfg.Merge.ClearSubmissions {
		keep := cols.HeaderRows
		if keep > len(logTable) {
			keep = len(logTable)
		}
		if err := r.store.Put(ctx, r.cfg.Submissions.Table, logTable[:keep].Clone()); err != nil {
			return nil, eris.Wrap(err, "pipeline: clear submissions")
		}
	}

	// =========================================================================
	// STEP 6: RUN LOGS
	// =========================================================================

	if result.ErrorLog, err = utils.WriteErrorLog(failures, r.cfg.OutputDir, result.RunID); err != nil {
		log.Warn("merge: error log not written", zap.Error(err))
	}

	runSummary := utils.RunSummary{
		RunID:       result.RunID,
		Kind:        "merge",
		Date:        result.Date,
		StartTime:   start,
		EndTime:     r.now(),
		Submissions: result.Submissions,
		Processed:   result.Processed,
		Failed:      result.Failed,
		Tables:      result.Tables,
		Payments:    &utils.PaymentSummary{Entries: len(result.Entries)},
	}
	if result.SummaryLog, err = utils.WriteSummaryLog(runSummary, r.cfg.OutputDir); err != nil {
		log.Warn("merge: summary not written", zap.Error(err))
	}

	log.Info("merge: run complete",
		zap.Int("submissions", result.Submissions),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// storeMerged appends merged rows to the named table and dedupes the whole
// table. When the table already exists with the same header, the merged
// table's header row is not repeated. A table classified by an earlier
// report loses its Status column and marks first, so the next report
// reclassifies every row.
func (r *Runner) storeMerged(ctx context.Context, name string, merged types.Table) (utils.TableSummary, error) {
	summary := utils.TableSummary{Name: name}

	existing, _, err := r.store.GetOrCreate(ctx, name, merged[0])
	if err != nil {
		return summary, eris.Wrapf(err, "pipeline: open %s", name)
	}
	existing = unclassify(existing)

	rows := merged
	if len(existing) > 0 && merged[0].Equal(existing[0]) {
		rows = merged[1:]
	}
	summary.Added = len(rows)

	combined := append(existing, rows...)
	combined, summary.Removed = dedupe.Dedupe(combined)
	summary.Rows = len(combined)

	if err := r.store.Put(ctx, name, combined); err != nil {
		return summary, eris.Wrapf(err, "pipeline: write %s", name)
	}
	return summary, nil
}

// unclassify drops the Status column and cell marks a report run left on t.
// A marked cell also loses its highlight, since the workbook store reads
// every mark fill back as highlighted.
func unclassify(t types.Table) types.Table {
	t = report.StripStatus(t)
	for _, row := range t {
		for j := range row {
			if row[j].Mark != types.MarkNone {
				row[j].Mark = types.MarkNone
				row[j].Highlight = false
			}
		}
	}
	return t
}
