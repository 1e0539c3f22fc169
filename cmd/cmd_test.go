package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/store"
	"github.com/ginjaninja78/submission-merger/internal/types"
)

const testDate = "2024-06-01"

// execute runs the CLI with args and returns its combined output.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single execution.
	submitFile, mergeDate = "", ""
	reportRate, reportURL, reportDate = "", "", ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

// workspace lays out a config file, a source directory of CSV exports and
// an output directory under t.TempDir().
func workspace(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()

	sources := filepath.Join(dir, "sources")
	writeCSV(t, sources, "docA", "Sheet1", "ID,Name\n001,a\n002,b\n")
	writeCSV(t, sources, "docB", "Sheet1", "ID,Name\n002,b\n003,c\n")
	writeCSV(t, sources, "rep", "Report", "Report\nID 001\n")

	dbPath = filepath.Join(dir, "merger.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`output_dir: %s
store:
  driver: sqlite
  path: %s
source:
  kind: dir
  dir: %s
log:
  level: error
`, filepath.Join(dir, "output"), dbPath, sources)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))
	return cfgPath, dbPath
}

func writeCSV(t *testing.T, root, docID, sheet, content string) {
	t.Helper()
	dir := filepath.Join(root, docID)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, sheet+".csv"), []byte(content), 0644))
}

func payload(docID, user string) string {
	return fmt.Sprintf(`{"sheetLink": "https://docs.google.com/spreadsheets/d/%s/edit",
		"paymentMethod": "bKash", "paymentNumber": "01700000000",
		"userId": "%s", "submissionType": "0 FD"}`, docID, user)
}

func openStore(t *testing.T, dbPath string) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), config.StoreConfig{Driver: config.DriverSQLite, Path: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSubmitMergeReport(t *testing.T) {
	cfgPath, dbPath := workspace(t)

	out, err := execute(t, strings.NewReader(payload("docA", "u1")), "--config", cfgPath, "submit")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Submission recorded for user u1")

	payloadFile := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(payloadFile, []byte(payload("docB", "u2")), 0644))
	out, err = execute(t, nil, "--config", cfgPath, "submit", "--file", payloadFile)
	require.NoError(t, err, out)

	out, err = execute(t, nil, "--config", cfgPath, "merge", "--date", testDate)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Submissions:     2")
	assert.Contains(t, out, "Processed:       2")
	assert.Contains(t, out, "Errors:          0")
	assert.Contains(t, out, "2024-06-01 0 FD: 4 row(s), 4 added, 1 duplicate(s) removed")

	st := openStore(t, dbPath)
	merged, err := st.Get(context.Background(), "2024-06-01 0 FD")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ID", "Name"}, {"001", "a"}, {"002", "b"}, {"003", "c"}}, merged.Strings())

	// CSV exports carry no highlight, so the report yields no good IDs and
	// every ID cell is bad: 4 IDs at 0.5 less 3 bad IDs at 0.5.
	out, err = execute(t, nil, "--config", cfgPath, "report",
		"--rate", "0.5",
		"--url", "https://docs.google.com/spreadsheets/d/rep/edit",
		"--date", testDate,
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Bad cells:          3")
	assert.Contains(t, out, "Total IDs:          4")
	assert.Contains(t, out, "Total Amount:       2.00")
	assert.Contains(t, out, "Final Amount:       0.50")
}

func TestSubmit_Rejected(t *testing.T) {
	cfgPath, _ := workspace(t)

	out, err := execute(t, strings.NewReader(`{"sheetLink": "https://example.com", "userId": "u1"}`),
		"--config", cfgPath, "submit")
	require.Error(t, err)
	assert.Contains(t, out, "sheetLink")
	assert.Contains(t, out, "paymentMethod")

	_, err = execute(t, strings.NewReader(`not json`), "--config", cfgPath, "submit")
	assert.Error(t, err)
}

func TestReport_InvalidRate(t *testing.T) {
	cfgPath, _ := workspace(t)

	_, err := execute(t, nil, "--config", cfgPath, "report",
		"--rate", "-2",
		"--url", "https://docs.google.com/spreadsheets/d/rep/edit",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidRate))
}

func TestMerge_NothingPending(t *testing.T) {
	cfgPath, _ := workspace(t)

	out, err := execute(t, nil, "--config", cfgPath, "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending submissions.")
}

func TestConfigInitAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merger.yaml")

	out, err := execute(t, nil, "--config", path, "config", "init")
	require.NoError(t, err, out)
	assert.FileExists(t, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DriverWorkbook, cfg.Store.Driver)

	_, err = execute(t, nil, "--config", path, "config", "init")
	assert.Error(t, err, "existing file is not overwritten")

	out, err = execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Submission Merger")
	assert.Contains(t, out, "Version:    "+Version)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"submit", "merge", "report", "config", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestReportCommand_Flags(t *testing.T) {
	for _, name := range []string{"rate", "url", "date"} {
		require.NotNil(t, reportCmd.Flags().Lookup(name), "report command should have --%s flag", name)
	}
	assert.Equal(t, "", mergeCmd.Flags().Lookup("date").DefValue)
}

func TestVersion_IgnoresBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: mongo\n"), 0644))

	out, err := execute(t, nil, "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Build Date: "+BuildDate)
	assert.Contains(t, out, "Go Version: go")
}
