// =============================================================================
// Submission Merger - Table Sources
// =============================================================================
//
// A TableSource returns the contents of one sheet of an external spreadsheet
// document. The merge run uses it for every submitted link; the report run
// uses it once for the report document.
//
// IMPLEMENTATIONS:
//   - DirSource:    local exports, <dir>/<id>.xlsx or <dir>/<id>/<sheet>.csv
//   - ExportSource: downloads the document as xlsx over HTTP
//
// ERRORS:
//   Every implementation wraps one of the shared sentinels so callers can
//   tell the failure kinds apart with errors.Is:
//   - types.ErrSourceSheetMissing: the document exists but the sheet does not
//   - types.ErrFetchFailure:       anything else (missing document, network,
//                                  permissions, unreadable workbook)
//
// =============================================================================

package source

import (
	"context"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// TableSource fetches a named sheet of an external document.
type TableSource interface {
	// Fetch returns the rows of sheetName on the document. An empty
	// sheetName selects the document's first sheet.
	Fetch(ctx context.Context, documentID, sheetName string) (types.Table, error)
}

var (
	documentIDPattern = regexp.MustCompile(`spreadsheets/d/([A-Za-z0-9-_]+)`)
	validDocumentID   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ExtractDocumentID pulls the document identifier out of a spreadsheet link.
//
// RETURNS:
//   - The identifier.
//   - types.ErrInvalidURL if the link has no "spreadsheets/d/<id>" segment.
func ExtractDocumentID(url string) (string, error) {
	m := documentIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", eris.Wrapf(types.ErrInvalidURL, "source: no document id in %q", url)
	}
	return m[1], nil
}

// New builds the TableSource selected by the configuration.
func New(cfg config.SourceConfig, logger *zap.Logger) (TableSource, error) {
	switch cfg.Kind {
	case config.SourceDir:
		return NewDirSource(cfg.Dir), nil
	case config.SourceExport:
		return NewExportSource(ExportOptions{
			URLTemplate:       cfg.ExportURL,
			Timeout:           time.Duration(cfg.TimeoutSecs) * time.Second,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, logger), nil
	default:
		return nil, eris.Errorf("source: unknown kind %q", cfg.Kind)
	}
}

// sheetMissing and fetchFailure attach context to the shared sentinels.
func sheetMissing(documentID, sheet string) error {
	return eris.Wrapf(types.ErrSourceSheetMissing, "source: document %s has no sheet %q", documentID, sheet)
}

func fetchFailure(documentID string, cause error) error {
	return eris.Wrapf(types.ErrFetchFailure, "source: document %s: %v", documentID, cause)
}
