package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// Fill colors written for marked and highlighted cells.
const (
	goodColor      = "C6EFCE"
	badColor       = "FFC7CE"
	highlightColor = "FFFF00"
)

// WorkbookStore keeps tables as sheets of a single xlsx file. Every Put
// saves the file.
type WorkbookStore struct {
	path string
	f    *excelize.File

	// placeholder is the default sheet of a freshly created workbook; it is
	// hidden from List and removed once a real table exists.
	placeholder string

	styles map[string]int // fill color -> style ID
}

// OpenWorkbook opens the workbook at path, or starts a new one if the file
// does not exist yet.
func OpenWorkbook(path string) (*WorkbookStore, error) {
	s := &WorkbookStore{path: path, styles: make(map[string]int)}

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "workbook: open %s", path)
		}
		s.f = f
		return s, nil
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "workbook: stat %s", path)
	}

	s.f = excelize.NewFile()
	s.placeholder = s.f.GetSheetName(0)
	return s, nil
}

func (s *WorkbookStore) exists(name string) bool {
	if name == s.placeholder {
		return false
	}
	idx, err := s.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Get implements Store.
func (s *WorkbookStore) Get(_ context.Context, name string) (types.Table, error) {
	if !s.exists(name) {
		return nil, eris.Wrapf(ErrTableNotFound, "workbook: %q", name)
	}

	rows, err := s.f.GetRows(name)
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: read %q", name)
	}

	fills := make(map[int]string)
	table := make(types.Table, len(rows))
	for r, values := range rows {
		row := make(types.Row, len(values))
		for c, v := range values {
			row[c] = types.Cell{Value: v}

			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, eris.Wrap(err, "workbook: cell name")
			}
			styleID, err := s.f.GetCellStyle(name, cell)
			if err != nil {
				return nil, eris.Wrapf(err, "workbook: style of %s!%s", name, cell)
			}

			color, ok := fills[styleID]
			if !ok {
				color = s.fillColor(styleID)
				fills[styleID] = color
			}

			switch color {
			case "":
			case goodColor:
				row[c].Mark = types.MarkGood
				row[c].Highlight = true
			case badColor:
				row[c].Mark = types.MarkBad
				row[c].Highlight = true
			case "FFFFFF":
			default:
				row[c].Highlight = true
			}
		}
		table[r] = row
	}
	return table, nil
}

// fillColor returns the normalized solid fill color of a style, or "" when
// the style has no fill.
func (s *WorkbookStore) fillColor(styleID int) string {
	if styleID == 0 {
		return ""
	}
	style, err := s.f.GetStyle(styleID)
	if err != nil || style == nil {
		return ""
	}
	if style.Fill.Type != "pattern" || style.Fill.Pattern == 0 {
		return ""
	}
	if len(style.Fill.Color) == 0 {
		return highlightColor
	}
	c := strings.ToUpper(strings.TrimPrefix(style.Fill.Color[0], "#"))
	if len(c) == 8 {
		c = c[2:]
	}
	if c == "" {
		return highlightColor
	}
	return c
}

// GetOrCreate implements Store.
func (s *WorkbookStore) GetOrCreate(ctx context.Context, name string, header types.Row) (types.Table, bool, error) {
	return getOrCreate(ctx, s, name, header)
}

// Put implements Store.
func (s *WorkbookStore) Put(_ context.Context, name string, t types.Table) error {
	if !s.exists(name) {
		if _, err := s.f.NewSheet(name); err != nil {
			return eris.Wrapf(err, "workbook: create sheet %q", name)
		}
	} else if err := s.clear(name); err != nil {
		return err
	}

	for r, row := range t {
		if len(row) == 0 {
			continue
		}
		start, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return eris.Wrap(err, "workbook: cell name")
		}

		values := make([]interface{}, len(row))
		for c, cell := range row {
			values[c] = cell.Value
		}
		if err := s.f.SetSheetRow(name, start, &values); err != nil {
			return eris.Wrapf(err, "workbook: write %q row %d", name, r+1)
		}

		for c, cell := range row {
			color := cellColor(cell)
			if color == "" {
				continue
			}
			styleID, err := s.style(color)
			if err != nil {
				return err
			}
			ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := s.f.SetCellStyle(name, ref, ref, styleID); err != nil {
				return eris.Wrapf(err, "workbook: style %q!%s", name, ref)
			}
		}
	}

	if s.placeholder != "" {
		if s.placeholder != name {
			if err := s.f.DeleteSheet(s.placeholder); err != nil {
				return eris.Wrap(err, "workbook: drop default sheet")
			}
		}
		s.placeholder = ""
	}

	return s.save()
}

// clear removes every row of a sheet, bottom-up.
func (s *WorkbookStore) clear(name string) error {
	rows, err := s.f.GetRows(name)
	if err != nil {
		return eris.Wrapf(err, "workbook: read %q", name)
	}
	for r := len(rows); r >= 1; r-- {
		if err := s.f.RemoveRow(name, r); err != nil {
			return eris.Wrapf(err, "workbook: clear %q row %d", name, r)
		}
	}
	return nil
}

func cellColor(c types.Cell) string {
	switch {
	case c.Mark == types.MarkGood:
		return goodColor
	case c.Mark == types.MarkBad:
		return badColor
	case c.Highlight:
		return highlightColor
	default:
		return ""
	}
}

func (s *WorkbookStore) style(color string) (int, error) {
	if id, ok := s.styles[color]; ok {
		return id, nil
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, eris.Wrapf(err, "workbook: new style %s", color)
	}
	s.styles[color] = id
	return id, nil
}

func (s *WorkbookStore) save() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "workbook: create %s", dir)
		}
	}
	if err := s.f.SaveAs(s.path); err != nil {
		return eris.Wrapf(err, "workbook: save %s", s.path)
	}
	return nil
}

// List implements Store.
func (s *WorkbookStore) List(_ context.Context) ([]string, error) {
	var names []string
	for _, name := range s.f.GetSheetList() {
		if name != s.placeholder {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close implements Store.
func (s *WorkbookStore) Close() error {
	return s.f.Close()
}
