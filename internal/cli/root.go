// Package cli implements the searchload command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "searchload",
	Short: "Load generator for the claims-search API",
	Long: `searchload drives synthetic concurrent traffic against the
claims-search API to validate latency and error-rate behavior under
load. A YAML plan defines the staged virtual-user ramp, the weighted
scenario mix, and the pass/fail thresholds.

Example:
  SEARCH_BASE_URL=https://claims.example.com \
  SEARCH_API_KEY=secret \
  searchload run --plan plans/smoke.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
