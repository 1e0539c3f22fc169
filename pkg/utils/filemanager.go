// =============================================================================
// Submission Merger - Run Log Files
// =============================================================================
//
// This module writes the human-readable files that accompany every merge and
// report run:
//   - error_log_<timestamp>_<run>.txt       one entry per failed submission
//   - <kind>_summary_<timestamp>_<run>.txt  run statistics and per-table counts
//
// <run> is the start of the run ID.
//
// Both files land in the configured output directory. Writing them is
// best-effort from the caller's point of view: the store already holds the
// run's results.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// timestampLayout names log files.
const timestampLayout = "20060102_150405"

// NewRunID returns a unique identifier for a run.
func NewRunID() string {
	return uuid.New().String()
}

// shortID returns the first eight letters or digits of a run ID for use in
// file names. Logs of runs that finish within the same second stay apart.
func shortID(runID string) string {
	var b strings.Builder
	for _, r := range runID {
		if b.Len() == 8 {
			break
		}
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "norun"
	}
	return b.String()
}

// EnsureDir creates dir if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrapf(err, "utils: create directory %s", dir)
	}
	return nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	Category     string
	Index        int // 1-based position within the category
	SourceURL    string
	UserID       string
	ErrorType    string
	ErrorMessage string
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//   - runID: Identifies the run in the header.
//
// RETURNS:
//   - The path to the error log file, or "" when there was nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir, runID string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	now := time.Now()
	logPath := filepath.Join(outputDir,
		fmt.Sprintf("error_log_%s_%s.txt", now.Format(timestampLayout), shortID(runID)))

	file, err := os.Create(logPath)
	if err != nil {
		return "", eris.Wrap(err, "utils: create error log")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Submission Merger - Error Log\n"+
		"Run ID: %s\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		runID,
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  Category:   %s\n"+
			"  Submission: %d\n"+
			"  Link:       %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Category,
			entry.Index,
			entry.SourceURL)

		if entry.UserID != "" {
			fmt.Fprintf(writer, "  User ID:    %s\n", entry.UserID)
		}
		fmt.Fprintf(writer, "  Error Type: %s\n  Message:    %s\n\n", entry.ErrorType, entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", eris.Wrap(err, "utils: flush error log")
	}
	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a merge or report run.
type RunSummary struct {
	RunID     string
	Kind      string // "merge" or "report"
	Date      string // the "<date>" prefix of the run's tables
	StartTime time.Time
	EndTime   time.Time

	// Merge statistics.
	Submissions int
	Processed   int
	Failed      int

	// Report statistics.
	GoodCells int
	BadCells  int

	Tables   []TableSummary
	Payments *PaymentSummary
}

// TableSummary describes one table touched by the run.
type TableSummary struct {
	Name     string
	Rows     int
	Added    int
	Removed  int // duplicates removed
	GoodRows int
	BadRows  int
}

// PaymentSummary is the payment table's summary block.
type PaymentSummary struct {
	Entries     int
	Rate        string
	TotalIDs    int
	TotalAmount string
	BadIDs      int
	FinalAmount string
}

// WriteSummaryLog writes a run summary to a log file.
//
// PARAMETERS:
//   - summary: The run summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("%s_summary_%s_%s.txt", summary.Kind, summary.EndTime.Format(timestampLayout), shortID(summary.RunID)))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", eris.Wrap(err, "utils: create summary file")
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Submission Merger - %s Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:     %s\n"+
		"  Date:       %s\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n",
		summary.Kind,
		summary.RunID,
		summary.Date,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String())

	writer.WriteString("Statistics:\n")
	switch summary.Kind {
	case "merge":
		fmt.Fprintf(writer, "  Submissions: %d\n  Processed:   %d\n  Failed:      %d\n\n",
			summary.Submissions, summary.Processed, summary.Failed)
	case "report":
		fmt.Fprintf(writer, "  Good IDs: %d\n  Bad IDs:  %d\n\n", summary.GoodCells, summary.BadCells)
	}

	if len(summary.Tables) > 0 {
		writer.WriteString("Tables:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ts := range summary.Tables {
			fmt.Fprintf(writer, "  %s\n", ts.Name)
			fmt.Fprintf(writer, "    Rows:       %d\n", ts.Rows)
			if summary.Kind == "merge" {
				fmt.Fprintf(writer, "    Added:      %d\n", ts.Added)
				fmt.Fprintf(writer, "    Duplicates: %d\n", ts.Removed)
			} else {
				fmt.Fprintf(writer, "    Good rows:  %d\n", ts.GoodRows)
				fmt.Fprintf(writer, "    Bad rows:   %d\n", ts.BadRows)
			}
		}
		writer.WriteString("\n")
	}

	if p := summary.Payments; p != nil {
		writer.WriteString("Payments:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		fmt.Fprintf(writer, "  Entries:      %d\n", p.Entries)
		if p.Rate != "" {
			fmt.Fprintf(writer, "  Rate:         %s\n", p.Rate)
			fmt.Fprintf(writer, "  Total IDs:    %d\n", p.TotalIDs)
			fmt.Fprintf(writer, "  Total Amount: %s\n", p.TotalAmount)
			fmt.Fprintf(writer, "  Bad IDs:      %d\n", p.BadIDs)
			fmt.Fprintf(writer, "  Final Amount: %s\n", p.FinalAmount)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", eris.Wrap(err, "utils: flush summary file")
	}
	return summaryPath, nil
}
