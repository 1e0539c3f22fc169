package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// DirSource serves documents exported into a local directory.
//
// LAYOUT:
//
//	<dir>/<documentID>.xlsx            one workbook per document
//	<dir>/<documentID>/<sheet>.csv     one CSV per sheet
//
// The workbook form wins when both exist.
type DirSource struct {
	Dir string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Fetch implements TableSource.
func (s *DirSource) Fetch(ctx context.Context, documentID, sheetName string) (types.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetchFailure(documentID, err)
	}
	if !validDocumentID.MatchString(documentID) {
		return nil, fetchFailure(documentID, eris.New("malformed document id"))
	}

	workbook := filepath.Join(s.Dir, documentID+".xlsx")
	if info, err := os.Stat(workbook); err == nil && !info.IsDir() {
		return readXLSXFile(workbook, documentID, sheetName)
	}

	csvDir := filepath.Join(s.Dir, documentID)
	info, err := os.Stat(csvDir)
	if err != nil || !info.IsDir() {
		return nil, fetchFailure(documentID, eris.Errorf("not found in %s", s.Dir))
	}

	if sheetName == "" {
		first, err := firstCSV(csvDir)
		if err != nil {
			return nil, fetchFailure(documentID, err)
		}
		if first == "" {
			return nil, sheetMissing(documentID, sheetName)
		}
		return readCSVFile(first, documentID)
	}

	path := filepath.Join(csvDir, sheetName+".csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, sheetMissing(documentID, sheetName)
	}
	return readCSVFile(path, documentID)
}

// firstCSV returns the alphabetically first CSV in dir, or "".
func firstCSV(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}
