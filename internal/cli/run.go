package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/config"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/output"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/scenarios"
)

// errThresholdsFailed signals a completed run whose verdict failed.
var errThresholdsFailed = errors.New("thresholds failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a load run from a plan file",
	Long: `Execute a load run: ramp virtual users through the plan's stages,
dispatch the weighted scenario mix, and evaluate thresholds against
the final aggregates. Exits nonzero if setup fails or any threshold
fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		planPath, _ := cmd.Flags().GetString("plan")
		quiet, _ := cmd.Flags().GetBool("quiet")
		return runLoadTest(planPath, quiet)
	},
}

func init() {
	runCmd.Flags().StringP("plan", "p", "", "path to the YAML plan file (required)")
	runCmd.Flags().BoolP("quiet", "q", false, "suppress progress output, print only the verdict")
	runCmd.MarkFlagRequired("plan")
}

// runLoadTest wires the plan, scenario catalog and engine together
// and executes the run.
func runLoadTest(planPath string, quiet bool) error {
	plan, err := config.Load(planPath)
	if err != nil {
		return err
	}

	console := output.NewConsole(os.Stdout, quiet)

	runner, err := buildRunner(plan, console)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages, _ := plan.ParsedStages()
	console.PrintHeader(plan.Name, loadgen.TotalDuration(stages), len(stages))

	result, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, loadgen.ErrSetupFailed) {
			console.PrintSetupError(err)
			return err
		}
		return err
	}

	if !result.Passed {
		return fmt.Errorf("%w: run %q completed but did not meet its thresholds", errThresholdsFailed, plan.Name)
	}
	return nil
}

// buildRunner constructs the engine runner from a validated plan.
func buildRunner(plan *config.Plan, console *output.Console) (*loadgen.Runner, error) {
	stages, err := plan.ParsedStages()
	if err != nil {
		return nil, err
	}
	thresholds, err := plan.ParsedThresholds()
	if err != nil {
		return nil, err
	}
	think, err := plan.ParsedThinkTime()
	if err != nil {
		return nil, err
	}
	gracefulStop, err := plan.ParsedGracefulStop()
	if err != nil {
		return nil, err
	}
	timeout, err := plan.Settings.ParsedTimeout()
	if err != nil {
		return nil, err
	}

	// The catalog needs the collector and the runner needs the
	// scenarios, so build in two steps around a shared collector.
	collector := metrics.NewCollector()
	catalog, err := scenarios.NewCatalog(scenarios.Config{
		BaseURL: plan.Settings.BaseURL,
		APIKey:  plan.Settings.APIKey,
		Timeout: timeout,
	}, collector)
	if err != nil {
		return nil, err
	}

	scenarioSet := make([]loadgen.Scenario, 0, len(plan.Scenarios))
	for _, sc := range plan.Scenarios {
		fn, err := catalog.Lookup(sc.Name)
		if err != nil {
			return nil, &config.ValidationError{Field: "scenarios", Message: err.Error()}
		}
		scenarioSet = append(scenarioSet, loadgen.Scenario{
			Name:   sc.Name,
			Weight: sc.Weight,
			Run:    fn,
		})
	}

	runner, err := loadgen.NewRunnerWithCollector(loadgen.Options{
		Stages:       stages,
		Scenarios:    scenarioSet,
		Thresholds:   thresholds,
		ThinkTime:    think,
		GracefulStop: gracefulStop,
		Hooks: loadgen.Hooks{
			Setup: catalog.Probe,
			Teardown: func(ctx context.Context, result *loadgen.RunResult) {
				console.PrintSummary(result)
			},
		},
		OnProgress: console.PrintProgress,
	}, collector)
	if err != nil {
		return nil, err
	}

	return runner, nil
}
