package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version and BuildDate are overridden with -ldflags "-X" at release time.
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
)

// versionCmd prints build information. It needs no configuration.
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the merger version",
	Annotations: map[string]string{"skipConfig": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Submission Merger")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
