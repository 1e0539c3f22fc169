// =============================================================================
// Submission Merger - Pipeline
// =============================================================================
//
// This package wires the pipeline stages to the table store and the document
// source. Each host command is one method on Runner:
//
//   Merge   submissions log -> grouper -> merge engine -> dedupe -> store
//   Report  report document -> classifier -> ledger -> store
//   Submit  JSON payload -> validation -> submissions log
//
// Runner holds no state between runs; everything durable lives in the store.
//
// TABLE NAMES:
//   "<date> <category>"  merged submissions of one category
//   "<date> Payment"     payment entries and, after a report run, the summary
//
// =============================================================================

package pipeline

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/source"
	"github.com/ginjaninja78/submission-merger/internal/store"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// PaymentSuffix names the payment table of a date.
const PaymentSuffix = config.PaymentCategory

// Runner executes the host commands.
type Runner struct {
	cfg    *config.Config
	store  store.Store
	source source.TableSource
	log    *zap.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New creates a Runner.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - st: The table store. The caller owns it and closes it.
//   - src: Where submitted and report documents are fetched from.
//   - logger: Structured logger; nil means no logging.
func New(cfg *config.Config, st store.Store, src source.TableSource, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, store: st, source: src, log: logger, now: time.Now}
}

// TableName returns the name of the merged table for a date and category.
func TableName(date, category string) string {
	return date + " " + category
}

// PaymentTableName returns the name of the payment table for a date.
func PaymentTableName(date string) string {
	return TableName(date, PaymentSuffix)
}

// resolveDate returns date, or today in the configured layout when empty.
func (r *Runner) resolveDate(date string) string {
	if date = strings.TrimSpace(date); date != "" {
		return date
	}
	return r.now().Format(r.cfg.Merge.DateFormat)
}

// =============================================================================
// SUBMISSION LOG LAYOUT
// =============================================================================

// submissionHeaders names each submission field, in SubmissionColumns order.
var submissionHeaders = []string{
	"Sheet Link",
	"Sheet Pin",
	"Payment Method",
	"Payment Number",
	"User ID",
	"Timestamp",
	"Submission Type",
}

func columnIndexes(c config.SubmissionColumns) []int {
	return []int{
		c.SourceURL,
		c.Pin,
		c.PaymentMethod,
		c.PaymentNumber,
		c.UserID,
		c.Timestamp,
		c.SubmissionType,
	}
}

func recordFields(rec types.SubmissionRecord) []string {
	return []string{
		rec.SourceURL,
		rec.Pin,
		rec.PaymentMethod,
		rec.PaymentNumber,
		rec.UserID,
		rec.Timestamp,
		rec.SubmissionType,
	}
}

// placeRow lays values out at the configured column positions.
func placeRow(c config.SubmissionColumns, values []string) types.Row {
	idx := columnIndexes(c)
	width := 0
	for _, i := range idx {
		if i+1 > width {
			width = i + 1
		}
	}

	row := make(types.Row, width)
	for k, i := range idx {
		row[i] = types.Cell{Value: values[k]}
	}
	return row
}

// SubmissionHeader returns the header row of the submissions log.
func SubmissionHeader(c config.SubmissionColumns) types.Row {
	return placeRow(c, submissionHeaders)
}

// SubmissionRow renders a record as a submissions log row.
func SubmissionRow(c config.SubmissionColumns, rec types.SubmissionRecord) types.Row {
	return placeRow(c, recordFields(rec))
}

// ParseSubmissions reads the records below the header rows of the log.
// Blank rows are skipped.
func ParseSubmissions(t types.Table, c config.SubmissionColumns) []types.SubmissionRecord {
	var records []types.SubmissionRecord
	for i := c.HeaderRows; i < len(t); i++ {
		row := t[i]
		if isBlank(row) {
			continue
		}

		at := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col].Value)
			}
			return ""
		}

		records = append(records, types.SubmissionRecord{
			SourceURL:      at(c.SourceURL),
			Pin:            at(c.Pin),
			PaymentMethod:  at(c.PaymentMethod),
			PaymentNumber:  at(c.PaymentNumber),
			UserID:         at(c.UserID),
			Timestamp:      at(c.Timestamp),
			SubmissionType: at(c.SubmissionType),
		})
	}
	return records
}

func isBlank(row types.Row) bool {
	for _, c := range row {
		if strings.TrimSpace(c.Value) != "" {
			return false
		}
	}
	return true
}
