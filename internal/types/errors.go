package types

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Error taxonomy shared by the pipeline. Stages wrap these with eris so the
// message carries context while errors.Is still matches the kind.
var (
	// ErrInvalidURL means a submission link did not contain a document ID.
	ErrInvalidURL = eris.New("invalid spreadsheet url")

	// ErrSourceSheetMissing means the named sheet does not exist on the
	// referenced document.
	ErrSourceSheetMissing = eris.New("source sheet missing")

	// ErrFetchFailure covers every other access problem (permissions,
	// network, unreadable workbook).
	ErrFetchFailure = eris.New("fetch failure")

	// ErrInvalidRate means the per-ID rate was negative or not a number.
	ErrInvalidRate = eris.New("invalid rate")

	// ErrInvalidReportURL means the report link did not contain a document ID.
	ErrInvalidReportURL = eris.New("invalid report url")
)

// Kind names the taxonomy entry err belongs to, for logs and summaries.
// Errors outside the taxonomy are "Error".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return "InvalidUrl"
	case errors.Is(err, ErrSourceSheetMissing):
		return "SourceSheetMissing"
	case errors.Is(err, ErrFetchFailure):
		return "FetchFailure"
	case errors.Is(err, ErrInvalidRate):
		return "InvalidRate"
	case errors.Is(err, ErrInvalidReportURL):
		return "InvalidReportUrl"
	default:
		return "Error"
	}
}
