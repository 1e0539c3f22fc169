// =============================================================================
// Submission Merger - Submission Validation
// =============================================================================
//
// This module validates submission records, both the JSON payloads appended
// by the submit command and the rows already sitting in the submission log.
//
// VALIDATION STRATEGY:
//   - Payloads are validated strictly: a payload with any error is rejected
//     before it reaches the log.
//   - Log rows are validated leniently: problems are reported as warnings
//     and the merge run decides what to do with the row (an unusable link
//     becomes a per-submission merge error, an empty link is dropped).
//
// Field names in messages are the payload's JSON names (sheetLink, userId,
// ...), so the same messages make sense for both paths.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ginjaninja78/submission-merger/internal/source"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is "error" (the record is rejected) or "warning".
	Severity string

	// Field is the JSON name of the field that failed.
	Field string

	// Value is the offending value.
	Value string

	// Message is a human-readable description.
	Message string

	// RowNumber is the 1-based row in the submission log; 0 for payloads.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(e.Severity)))
	if e.RowNumber > 0 {
		sb.WriteString(fmt.Sprintf(" row %d", e.RowNumber))
	}
	sb.WriteString(fmt.Sprintf(" %s: %s", e.Field, e.Message))
	if e.Value != "" {
		sb.WriteString(fmt.Sprintf(" (value: %q)", e.Value))
	}
	return sb.String()
}

// ValidationResult collects the problems found in the submission log.
type ValidationResult struct {
	// Valid counts rows without problems.
	Valid int

	// Warnings has every problem found.
	Warnings []*ValidationError
}

// =============================================================================
// RULES
// =============================================================================

// Timestamp layouts accepted in payloads.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
}

func spreadsheetLink(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := source.ExtractDocumentID(s); err != nil {
		return errors.New("must be a spreadsheet link containing spreadsheets/d/<id>")
	}
	return nil
}

func timestamp(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return errors.New("must be a timestamp such as 2006-01-02T15:04:05Z")
}

func rules(rec *types.SubmissionRecord) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&rec.SourceURL, validation.Required, validation.By(spreadsheetLink)),
		validation.Field(&rec.PaymentMethod, validation.Required, validation.Length(1, 64)),
		validation.Field(&rec.PaymentNumber, validation.Required, validation.Length(1, 64)),
		validation.Field(&rec.UserID, validation.Required),
		validation.Field(&rec.SubmissionType, validation.Required),
		validation.Field(&rec.Timestamp, validation.By(timestamp)),
	}
}

// =============================================================================
// VALIDATORS
// =============================================================================

// ValidateSubmission validates a submitted payload.
//
// RETURNS:
//   - nil when the payload is acceptable.
//   - The ozzo validation.Errors keyed by JSON field name otherwise.
func ValidateSubmission(rec types.SubmissionRecord) error {
	return validation.ValidateStruct(&rec, rules(&rec)...)
}

// ValidateLog validates the rows of the submission log.
//
// PARAMETERS:
//   - records: The parsed rows, in log order.
//   - firstRow: The 1-based log row of records[0].
func ValidateLog(records []types.SubmissionRecord, firstRow int) *ValidationResult {
	result := &ValidationResult{}
	for i := range records {
		rec := records[i]
		err := validation.ValidateStruct(&rec, rules(&rec)...)
		if err == nil {
			result.Valid++
			continue
		}
		result.Warnings = append(result.Warnings, ToValidationErrors(err, SeverityWarning, firstRow+i, rec)...)
	}
	return result
}

// ToValidationErrors flattens an ozzo error into ValidationErrors sorted by
// field name.
func ToValidationErrors(err error, severity string, row int, rec types.SubmissionRecord) []*ValidationError {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []*ValidationError{{Severity: severity, Field: "record", Message: err.Error(), RowNumber: row}}
	}

	values := map[string]string{
		"sheetLink":      rec.SourceURL,
		"sheetPin":       rec.Pin,
		"paymentMethod":  rec.PaymentMethod,
		"paymentNumber":  rec.PaymentNumber,
		"userId":         rec.UserID,
		"timestamp":      rec.Timestamp,
		"submissionType": rec.SubmissionType,
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]*ValidationError, 0, len(fields))
	for _, field := range fields {
		out = append(out, &ValidationError{
			Severity:  severity,
			Field:     field,
			Value:     values[field],
			Message:   errs[field].Error(),
			RowNumber: row,
		})
	}
	return out
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display, one per line.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d validation problem(s):\n", len(errs)))
	for _, err := range errs {
		sb.WriteString("  ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}
