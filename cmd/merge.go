// =============================================================================
// Submission Merger - Merge Command
// =============================================================================
//
// COMMAND USAGE:
//   merger merge [--date 2024-06-01]
//
// Consumes every pending submission: each category's linked tables are
// merged into "<date> <category>" and a payment entry per contributing
// submission is appended to "<date> Payment". Submissions that fail are
// listed, counted, and written to an error log in the output directory.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// mergeDate overrides the date prefix of the tables written.
var mergeDate string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge all pending submissions",
	Long: `The merge command reads the pending submissions, groups them by
submission category, merges the linked tables of each group and removes
duplicate rows. A failing submission is reported and skipped; it never stops
the rest of the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMerge(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringVar(
		&mergeDate,
		"date",
		"",
		"Date prefix of the tables written (default: today in merge.date_format)",
	)
}

func runMerge(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runner, closeFn, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(out, "=== Submission Merger: merge ===")

	res, err := runner.Merge(ctx, mergeDate)
	if err != nil {
		return err
	}

	if res.Submissions == 0 {
		fmt.Fprintln(out, "No pending submissions.")
		return nil
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  ! %s\n", w.Error())
	}
	for _, ts := range res.Tables {
		fmt.Fprintf(out, "  ✓ %s: %d row(s), %d added, %d duplicate(s) removed\n", ts.Name, ts.Rows, ts.Added, ts.Removed)
	}
	for _, msg := range res.Errors() {
		fmt.Fprintf(out, "  ✗ %s\n", msg)
	}

	fmt.Fprintln(out, "\n=== Merge Complete ===")
	fmt.Fprintf(out, "Date:            %s\n", res.Date)
	fmt.Fprintf(out, "Submissions:     %d\n", res.Submissions)
	fmt.Fprintf(out, "Processed:       %d\n", res.Processed)
	fmt.Fprintf(out, "Errors:          %d\n", res.Failed)
	fmt.Fprintf(out, "Payment entries: %d\n", len(res.Entries))

	if res.ErrorLog != "" {
		fmt.Fprintf(out, "\nErrors have been logged to %s\n", res.ErrorLog)
	}
	return nil
}
