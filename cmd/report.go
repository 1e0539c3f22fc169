// =============================================================================
// Submission Merger - Report Command
// =============================================================================
//
// COMMAND USAGE:
//   merger report --rate 0.5 --url <report link> [--date 2024-06-01]
//
// Builds the good-ID set from the highlighted cells of the report document,
// marks every cell and row of the date's merged tables Good or Bad, and
// writes amounts plus a summary block into "<date> Payment".
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/submission-merger/internal/pipeline"
)

var (
	reportRate string
	reportURL  string
	reportDate string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Classify merged tables against a report and settle payments",
	Long: `The report command validates the rate and the report link, then
fetches the report document. Any problem with these inputs aborts the run
before a table is touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportRate, "rate", "", "Amount paid per ID")
	reportCmd.Flags().StringVar(&reportURL, "url", "", "Link to the report spreadsheet")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Date prefix of the tables classified (default: today)")
	reportCmd.MarkFlagRequired("rate")
	reportCmd.MarkFlagRequired("url")
}

func runReport(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	runner, closeFn, err := openRunner(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	fmt.Fprintln(out, "=== Submission Merger: report ===")

	res, err := runner.Report(ctx, pipeline.ReportRequest{
		Rate: reportRate,
		URL:  reportURL,
		Date: reportDate,
	})
	if err != nil {
		return err
	}

	for _, ts := range res.Tables {
		fmt.Fprintf(out, "  ✓ %s: %d good, %d bad row(s)\n", ts.Name, ts.GoodRows, ts.BadRows)
	}

	fmt.Fprintln(out, "\n=== Report Complete ===")
	fmt.Fprintf(out, "Good IDs in report: %d\n", res.GoodIDs)
	fmt.Fprintf(out, "Good cells:         %d\n", res.GoodCells)
	fmt.Fprintf(out, "Bad cells:          %d\n", res.BadCells)

	if f := res.Ledger; f != nil {
		fmt.Fprintf(out, "Total IDs:          %d\n", f.TotalIDs)
		fmt.Fprintf(out, "Total Amount:       %s\n", f.TotalAmount.StringFixed(2))
		fmt.Fprintf(out, "Bad IDs Deducted:   %d\n", f.BadIDs)
		fmt.Fprintf(out, "Final Amount:       %s\n", f.FinalAmount.StringFixed(2))
	} else {
		fmt.Fprintf(out, "No payment table for %s.\n", res.Date)
	}
	return nil
}
