package source

import (
	"github.com/tealeg/xlsx/v2"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// readXLSXFile reads one sheet of a local workbook file.
func readXLSXFile(path, documentID, sheetName string) (types.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}

	sheet, err := getSheet(f, documentID, sheetName)
	if err != nil {
		return nil, err
	}

	table := make(types.Table, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		table = append(table, rowToCells(row))
	}

	return trimTable(table), nil
}

func getSheet(f *xlsx.File, documentID, sheetName string) (*xlsx.Sheet, error) {
	if sheetName != "" {
		sheet, ok := f.Sheet[sheetName]
		if !ok {
			return nil, sheetMissing(documentID, sheetName)
		}
		return sheet, nil
	}

	if len(f.Sheets) == 0 {
		return nil, sheetMissing(documentID, sheetName)
	}
	return f.Sheets[0], nil
}

func rowToCells(row *xlsx.Row) types.Row {
	if row == nil {
		return nil
	}

	cells := make(types.Row, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = types.Cell{
			Value:     cell.String(),
			Highlight: cellHighlighted(cell),
		}
	}
	return cells
}

func cellHighlighted(cell *xlsx.Cell) bool {
	style := cell.GetStyle()
	if style == nil {
		return false
	}

	fill := style.Fill
	if fill.PatternType == "" || fill.PatternType == "none" {
		return false
	}
	return isHighlightFill(fill.FgColor)
}
