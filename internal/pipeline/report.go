package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/ledger"
	"github.com/ginjaninja78/submission-merger/internal/report"
	"github.com/ginjaninja78/submission-merger/internal/source"
	"github.com/ginjaninja78/submission-merger/internal/store"
	"github.com/ginjaninja78/submission-merger/internal/types"
	"github.com/ginjaninja78/submission-merger/pkg/utils"
)

// ReportRequest holds the operator's inputs to a report run.
type ReportRequest struct {
	// Rate is the per-ID payment rate, as typed.
	Rate string

	// URL links the report document.
	URL string

	// Date selects the tables classified; empty means today.
	Date string
}

// ReportResult represents the outcome of a report run.
type ReportResult struct {
	RunID string
	Date  string

	// GoodIDs is the size of the good-ID set.
	GoodIDs int

	// GoodCells and BadCells are summed over every classified table.
	GoodCells int
	BadCells  int

	Tables []utils.TableSummary

	// Ledger is nil when the date has no payment table.
	Ledger *ledger.Finalized

	SummaryLog string
}

// Report classifies the date's merged tables against a report document and
// finalizes its payment table.
//
// Both inputs are checked before any work: a bad rate returns
// types.ErrInvalidRate and a bad link types.ErrInvalidReportURL. Failing to
// fetch the report aborts the run.
func (r *Runner) Report(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	start := r.now()

	rate, err := ledger.ParseRate(req.Rate)
	if err != nil {
		return nil, err
	}

	docID, err := source.ExtractDocumentID(req.URL)
	if err != nil {
		return nil, eris.Wrapf(types.ErrInvalidReportURL, "pipeline: report link %q", req.URL)
	}

	result := &ReportResult{RunID: utils.NewRunID(), Date: r.resolveDate(req.Date)}
	log := r.log.With(zap.String("run_id", result.RunID), zap.String("date", result.Date))

	reportTable, err := r.source.Fetch(ctx, docID, r.cfg.Report.Sheet)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch report")
	}

	ids := report.BuildGoodIDSet(reportTable)
	result.GoodIDs = len(ids)
	log.Info("report: good ids collected", zap.String("document_id", docID), zap.Int("ids", len(ids)))

	// Classify every merged table of the date.
	names, err := r.store.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list tables")
	}

	prefix := result.Date + " "
	paymentName := PaymentTableName(result.Date)

	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || name == paymentName {
			continue
		}

		t, err := r.store.Get(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: read %s", name)
		}

		res := report.Classify(t, ids)
		if err := r.store.Put(ctx, name, res.Table); err != nil {
			return nil, eris.Wrapf(err, "pipeline: write %s", name)
		}

		result.GoodCells += res.GoodCells
		result.BadCells += res.BadCells
		result.Tables = append(result.Tables, utils.TableSummary{
			Name:     name,
			Rows:     len(res.Table),
			GoodRows: res.GoodRows,
			BadRows:  res.BadRows,
		})
		log.Info("report: table classified",
			zap.String("table", name),
			zap.Int("good_cells", res.GoodCells),
			zap.Int("bad_cells", res.BadCells),
		)
	}

	// Finalize the ledger.
	payments, err := r.store.Get(ctx, paymentName)
	switch {
	case errors.Is(err, store.ErrTableNotFound):
		log.Warn("report: no payment table", zap.String("table", paymentName))
	case err != nil:
		return nil, eris.Wrapf(err, "pipeline: read %s", paymentName)
	default:
		entries, err := ledger.ParseEntries(payments)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: parse %s", paymentName)
		}

		finalized, err := ledger.Finalize(entries, rate, result.BadCells)
		if err != nil {
			return nil, err
		}
		if err := r.store.Put(ctx, paymentName, ledger.Render(payments.Header(), finalized)); err != nil {
			return nil, eris.Wrapf(err, "pipeline: write %s", paymentName)
		}
		result.Ledger = finalized

		log.Info("report: ledger finalized",
			zap.Int("total_ids", finalized.TotalIDs),
			zap.String("final_amount", finalized.FinalAmount.StringFixed(2)),
		)
	}

	runSummary := utils.RunSummary{
		RunID:     result.RunID,
		Kind:      "report",
		Date:      result.Date,
		StartTime: start,
		EndTime:   r.now(),
		GoodCells: result.GoodCells,
		BadCells:  result.BadCells,
		Tables:    result.Tables,
	}
	if f := result.Ledger; f != nil {
		runSummary.Payments = &utils.PaymentSummary{
			Entries:     len(f.Entries),
			Rate:        f.Rate.String(),
			TotalIDs:    f.TotalIDs,
			TotalAmount: f.TotalAmount.StringFixed(2),
			BadIDs:      f.BadIDs,
			FinalAmount: f.FinalAmount.StringFixed(2),
		}
	}
	if result.SummaryLog, err = utils.WriteSummaryLog(runSummary, r.cfg.OutputDir); err != nil {
		log.Warn("report: summary not written", zap.Error(err))
	}

	return result, nil
}
