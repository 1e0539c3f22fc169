package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

// fixtureCell is a value plus an optional fill color.
type fixtureCell struct {
	value string
	fill  string
}

func plain(values ...string) []fixtureCell {
	out := make([]fixtureCell, len(values))
	for i, v := range values {
		out[i] = fixtureCell{value: v}
	}
	return out
}

// createTestXLSX writes a workbook with tealeg into dir/<name>.xlsx.
func createTestXLSX(t *testing.T, dir, name string, sheets map[string][][]fixtureCell) string {
	t.Helper()
	f := xlsx.NewFile()
	for sheetName, rows := range sheets {
		sheet, err := f.AddSheet(sheetName)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData.value)
				if cellData.fill != "" {
					style := xlsx.NewStyle()
					style.Fill = *xlsx.NewFill("solid", cellData.fill, cellData.fill)
					style.ApplyFill = true
					cell.SetStyle(style)
				}
			}
		}
	}
	path := filepath.Join(dir, name+".xlsx")
	require.NoError(t, f.Save(path))
	return path
}

// createExportBytes builds a single-sheet workbook with excelize.
func createExportBytes(t *testing.T, sheet string, rows [][]fixtureCell) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}

	for r, rowData := range rows {
		for c, cellData := range rowData {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr(sheet, name, cellData.value))
			if cellData.fill != "" {
				styleID, err := f.NewStyle(&excelize.Style{
					Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{cellData.fill}},
				})
				require.NoError(t, err)
				require.NoError(t, f.SetCellStyle(sheet, name, name, styleID))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// =============================================================================
// DOCUMENT IDS
// =============================================================================

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-d_E2/edit#gid=0", "1AbC-d_E2", false},
		{"spreadsheets/d/xyz", "xyz", false},
		{"https://docs.google.com/document/d/abc/edit", "", true},
		{"", "", true},
		{"not a url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractDocumentID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, types.ErrInvalidURL))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsWhite(t *testing.T) {
	assert.True(t, isWhite("FFFFFF"))
	assert.True(t, isWhite("#ffffff"))
	assert.True(t, isWhite("FFFFFFFF"))
	assert.False(t, isWhite("FFFF00"))
	assert.False(t, isWhite(""))

	assert.True(t, isHighlightFill("FFFF00"))
	assert.True(t, isHighlightFill(""), "theme colors count as highlight")
	assert.False(t, isHighlightFill("#FFFFFF"))
}

func TestTrimTable(t *testing.T) {
	table := types.Table{
		types.NewRow("a", "", ""),
		types.NewRow("b", "c"),
		types.NewRow("", ""),
		{},
	}
	got := trimTable(table)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}}, got.Strings())
}

// =============================================================================
// DIR SOURCE
// =============================================================================

func TestDirSource_Workbook(t *testing.T) {
	dir := t.TempDir()
	createTestXLSX(t, dir, "doc1", map[string][][]fixtureCell{
		"Sheet1": {
			plain("ID", "Name"),
			{{value: "101", fill: "FFFFFF00"}, {value: "Alice"}},
			{{value: "102", fill: "FFFFFFFF"}, {value: "Bob"}},
		},
	})

	src := NewDirSource(dir)
	table, err := src.Fetch(context.Background(), "doc1", "Sheet1")
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, []string{"ID", "Name"}, table[0].Values())
	assert.True(t, table[1][0].Highlight)
	assert.False(t, table[1][1].Highlight)
	assert.False(t, table[2][0].Highlight, "white fill is not a highlight")
}

func TestDirSource_WorkbookFirstSheet(t *testing.T) {
	dir := t.TempDir()
	createTestXLSX(t, dir, "doc1", map[string][][]fixtureCell{
		"Only": {plain("x", "y")},
	})

	table, err := NewDirSource(dir).Fetch(context.Background(), "doc1", "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x", "y"}}, table.Strings())
}

func TestDirSource_SheetMissing(t *testing.T) {
	dir := t.TempDir()
	createTestXLSX(t, dir, "doc1", map[string][][]fixtureCell{
		"Sheet1": {plain("a")},
	})

	_, err := NewDirSource(dir).Fetch(context.Background(), "doc1", "Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceSheetMissing))
}

func TestDirSource_DocumentMissing(t *testing.T) {
	_, err := NewDirSource(t.TempDir()).Fetch(context.Background(), "ghost", "Sheet1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
	assert.False(t, errors.Is(err, types.ErrSourceSheetMissing))
}

func TestDirSource_RejectsPathTraversal(t *testing.T) {
	_, err := NewDirSource(t.TempDir()).Fetch(context.Background(), "../etc", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
}

func TestDirSource_CSV(t *testing.T) {
	dir := t.TempDir()
	docDir := filepath.Join(dir, "doc2")
	require.NoError(t, os.MkdirAll(docDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "Sheet1.csv"),
		[]byte("ID,Name\n1,\"Smith, J\"\n2,Lee,extra\n"), 0644))

	src := NewDirSource(dir)

	table, err := src.Fetch(context.Background(), "doc2", "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Name"}, {"1", "Smith, J"}, {"2", "Lee", "extra"}}, table.Strings())

	table, err = src.Fetch(context.Background(), "doc2", "")
	require.NoError(t, err)
	assert.Len(t, table, 3)

	_, err = src.Fetch(context.Background(), "doc2", "Other")
	assert.True(t, errors.Is(err, types.ErrSourceSheetMissing))
}

func TestDirSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirSource(t.TempDir()).Fetch(ctx, "doc", "")
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
}

// =============================================================================
// EXPORT SOURCE
// =============================================================================

func TestExportSource_Fetch(t *testing.T) {
	body := createExportBytes(t, "Report", [][]fixtureCell{
		plain("ID", "Note"),
		{{value: "ID-101", fill: "FFFF00"}, {value: "ok"}},
		{{value: "102"}, {value: "plain"}},
		{{value: "103", fill: "FFFFFF"}, {value: "white"}},
	})

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write(body)
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{
		URLTemplate: srv.URL + "/d/%s/export",
		UserAgent:   "test-agent",
	}, zap.NewNop())

	table, err := src.Fetch(context.Background(), "abc123", "Report")
	require.NoError(t, err)
	assert.Equal(t, "/d/abc123/export", gotPath)
	require.Len(t, table, 4)
	assert.Equal(t, "ID-101", table[1][0].Value)
	assert.True(t, table[1][0].Highlight)
	assert.False(t, table[2][0].Highlight)
	assert.False(t, table[3][0].Highlight)

	// Empty sheet name reads the first sheet.
	table, err = src.Fetch(context.Background(), "abc123", "")
	require.NoError(t, err)
	assert.Len(t, table, 4)
}

func TestExportSource_SheetMissing(t *testing.T) {
	body := createExportBytes(t, "Sheet1", [][]fixtureCell{plain("a")})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{URLTemplate: srv.URL + "/%s"}, nil)
	_, err := src.Fetch(context.Background(), "doc", "Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceSheetMissing))
}

func TestExportSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{URLTemplate: srv.URL + "/%s"}, nil)
	_, err := src.Fetch(context.Background(), "doc", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
	assert.Contains(t, err.Error(), "403")
}

func TestExportSource_NotAWorkbook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>sign in</html>"))
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{URLTemplate: srv.URL + "/%s"}, nil)
	_, err := src.Fetch(context.Background(), "doc", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
}

func TestExportSource_RateLimitedContext(t *testing.T) {
	body := createExportBytes(t, "Sheet1", [][]fixtureCell{plain("a")})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	src := NewExportSource(ExportOptions{URLTemplate: srv.URL + "/%s", RequestsPerMinute: 1}, nil)

	_, err := src.Fetch(context.Background(), "doc", "")
	require.NoError(t, err)

	// The single token is spent; a cancelled context fails the wait.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Fetch(ctx, "doc", "")
	assert.True(t, errors.Is(err, types.ErrFetchFailure))
}

// =============================================================================
// FACTORY
// =============================================================================

func TestNew(t *testing.T) {
	src, err := New(config.SourceConfig{Kind: config.SourceDir, Dir: "x"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &DirSource{}, src)

	src, err = New(config.SourceConfig{Kind: config.SourceExport, ExportURL: "http://h/%s", TimeoutSecs: 5}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ExportSource{}, src)

	_, err = New(config.SourceConfig{Kind: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
