package source

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// ReadWorkbook parses an xlsx stream and returns one sheet with highlight
// flags taken from the cell fills.
//
// PARAMETERS:
//   - r: The workbook bytes.
//   - documentID: Used in error messages only.
//   - sheet: The sheet to read. Empty selects the first sheet.
func ReadWorkbook(r io.Reader, documentID, sheet string) (types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}
	defer f.Close()

	return ReadSheet(f, documentID, sheet)
}

// ReadSheet reads one sheet of an open workbook.
func ReadSheet(f *excelize.File, documentID, sheet string) (types.Table, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, sheetMissing(documentID, sheet)
		}
	}

	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, sheetMissing(documentID, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}

	// Style IDs repeat heavily; resolve each one once.
	highlightByStyle := make(map[int]bool)

	table := make(types.Table, len(rows))
	for r, values := range rows {
		row := make(types.Row, len(values))
		for c, v := range values {
			row[c] = types.Cell{Value: v}

			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, eris.Wrap(err, "source: cell name")
			}
			styleID, err := f.GetCellStyle(sheet, name)
			if err != nil {
				return nil, fetchFailure(documentID, err)
			}

			hl, ok := highlightByStyle[styleID]
			if !ok {
				hl = StyleHighlighted(f, styleID)
				highlightByStyle[styleID] = hl
			}
			row[c].Highlight = hl
		}
		table[r] = row
	}

	return trimTable(table), nil
}

// StyleHighlighted reports whether an excelize style carries a non-white
// background fill.
func StyleHighlighted(f *excelize.File, styleID int) bool {
	if styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}

	fill := style.Fill
	switch {
	case fill.Type == "gradient":
		return isHighlightFill(fill.Color...)
	case fill.Type == "pattern" && fill.Pattern > 0:
		return isHighlightFill(fill.Color...)
	default:
		return false
	}
}
