// =============================================================================
// Submission Merger - Main Entry Point
// =============================================================================
//
// USAGE:
//   merger submit    - Record a submission from a JSON payload
//   merger merge     - Merge all pending submissions
//   merger report    - Classify merged tables and settle payments
//   merger config    - Write a default configuration file
//   merger version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : pipeline stages, store, sources, configuration
//   - pkg/       : run log utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/submission-merger/cmd"
)

func main() {
	cmd.Execute()
}
