package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/types"
	"github.com/ginjaninja78/submission-merger/internal/validation"
)

// DecodeSubmission reads one JSON payload of the form
// {sheetLink, sheetPin, paymentMethod, paymentNumber, userId, timestamp, submissionType}.
func DecodeSubmission(r io.Reader) (types.SubmissionRecord, error) {
	var rec types.SubmissionRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return rec, eris.Wrap(err, "pipeline: decode submission")
	}

	for _, f := range []*string{
		&rec.SourceURL, &rec.Pin, &rec.PaymentMethod, &rec.PaymentNumber,
		&rec.UserID, &rec.Timestamp, &rec.SubmissionType,
	} {
		*f = strings.TrimSpace(*f)
	}
	return rec, nil
}

// Submit appends a validated submission to the submissions log, creating the
// log with its header when needed. A missing timestamp is set to now.
//
// RETURNS:
//   - The record as stored.
//   - The ozzo validation errors when the payload is rejected, or a store error.
func (r *Runner) Submit(ctx context.Context, rec types.SubmissionRecord) (types.SubmissionRecord, error) {
	if err := validation.ValidateSubmission(rec); err != nil {
		return rec, err
	}
	if rec.Timestamp == "" {
		rec.Timestamp = r.now().UTC().Format(time.RFC3339)
	}

	cols := r.cfg.Submissions.Columns
	name := r.cfg.Submissions.Table

	t, _, err := r.store.GetOrCreate(ctx, name, SubmissionHeader(cols))
	if err != nil {
		return rec, eris.Wrapf(err, "pipeline: open %s", name)
	}

	t = append(t, SubmissionRow(cols, rec))
	if err := r.store.Put(ctx, name, t); err != nil {
		return rec, eris.Wrapf(err, "pipeline: write %s", name)
	}

	r.log.Info("submit: submission recorded",
		zap.String("user_id", rec.UserID),
		zap.String("submission_type", rec.SubmissionType),
		zap.Int("pending", len(t)-cols.HeaderRows),
	)
	return rec, nil
}
