// =============================================================================
// Submission Merger - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (merger)
//   ├── submitCmd  (merger submit)
//   ├── mergeCmd   (merger merge)
//   ├── reportCmd  (merger report)
//   ├── configCmd  (merger config init)
//   └── versionCmd (merger version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (internal/config, viper)
//   3. Setting up logging (zap)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/submission-merger/internal/config"
	"github.com/ginjaninja78/submission-merger/internal/pipeline"
	"github.com/ginjaninja78/submission-merger/internal/source"
	"github.com/ginjaninja78/submission-merger/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// cfg is the configuration loaded before any subcommand runs.
var cfg *config.Config

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "merger",
	Short: "Submission Merger - merge submitted spreadsheets and settle payments",
	Long: `Submission Merger collects user submissions that link to external
spreadsheets, merges the linked tables into one table per day and submission
category, removes duplicate rows, and settles payments against a report
document.

Typical day:
  merger submit --file payload.json          # record a submission
  merger merge                               # merge everything pending
  merger report --rate 0.5 --url <link>      # classify and pay

Tables are kept in the configured store (an .xlsx workbook by default).`,

	SilenceUsage: true,

	// PersistentPreRunE loads configuration and logging for every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if err := config.InitLogger(loaded.Log); err != nil {
			return err
		}

		cfg = loaded
		zap.L().Debug("config loaded", zap.String("path", cfgFile))
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file (a missing file means built-in defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openRunner opens the configured store and source and builds a Runner.
//
// RETURNS:
//   - The runner.
//   - A close function releasing the store.
//   - An error if the store or source cannot be opened.
func openRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	logger := zap.L()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open store")
	}

	src, err := source.New(cfg.Source, logger)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, err
	}

	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
	return pipeline.New(cfg, st, src, logger), closeFn, nil
}
