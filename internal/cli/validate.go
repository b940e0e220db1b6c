package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a plan file without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath, _ := cmd.Flags().GetString("plan")

		plan, err := config.Load(planPath)
		if err != nil {
			return err
		}

		fmt.Printf("plan %q is valid: %d stage(s), %d scenario(s)\n",
			plan.Name, len(plan.Stages), len(plan.Scenarios))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("plan", "p", "", "path to the YAML plan file (required)")
	validateCmd.MarkFlagRequired("plan")
}
