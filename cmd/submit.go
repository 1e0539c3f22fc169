package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/submission-merger/internal/pipeline"
	"github.com/ginjaninja78/submission-merger/internal/validation"
)

// submitFile is the JSON payload to record; "-" or empty reads stdin.
var submitFile string

// submitCmd records one submission in the pending log.
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record a submission from a JSON payload",
	Long: `The submit command validates one JSON payload

  {"sheetLink": "...", "sheetPin": "...", "paymentMethod": "...",
   "paymentNumber": "...", "userId": "...", "timestamp": "...",
   "submissionType": "..."}

and appends it to the pending submissions. timestamp is optional.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if submitFile != "" && submitFile != "-" {
			f, err := os.Open(submitFile)
			if err != nil {
				return eris.Wrapf(err, "open %s", submitFile)
			}
			defer f.Close()
			in = f
		}

		rec, err := pipeline.DecodeSubmission(in)
		if err != nil {
			return err
		}

		runner, closeFn, err := openRunner(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := runner.Submit(cmd.Context(), rec); err != nil {
			problems := validation.ToValidationErrors(err, validation.SeverityError, 0, rec)
			if len(problems) > 0 && problems[0].Field != "record" {
				fmt.Fprint(cmd.ErrOrStderr(), validation.FormatErrors(problems))
				return eris.New("submission rejected")
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Submission recorded for user %s (%s).\n", rec.UserID, rec.SubmissionType)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "JSON payload file (default: stdin)")
}
