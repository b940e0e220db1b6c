package loadgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/threshold"
)

// ErrSetupFailed wraps a setup-hook error. A setup failure aborts the
// run before any virtual user spawns, as opposed to a threshold
// failure, which only shows up in the verdict after the run completes.
var ErrSetupFailed = errors.New("setup failed")

// Hooks are the one-time pre-run and post-run collaborators.
type Hooks struct {
	// Setup runs once before any stage begins. A non-nil error aborts
	// the entire run.
	Setup func(ctx context.Context) error

	// Teardown runs once after the terminal stage, after all VUs have
	// drained. It receives the final result and never affects the
	// verdict.
	Teardown func(ctx context.Context, result *RunResult)
}

// Options is the complete run configuration, read once at start and
// immutable thereafter.
type Options struct {
	// Stages define the concurrency profile over the run's timeline.
	Stages []Stage

	// Scenarios is the weighted traffic mix.
	Scenarios []Scenario

	// Thresholds are the pass/fail criteria evaluated at run end.
	Thresholds []threshold.Threshold

	// ThinkTime is the randomized pause between iterations.
	ThinkTime ThinkTime

	// GracefulStop bounds how long draining VUs may take to finish
	// their in-flight iteration. Defaults to 30s.
	GracefulStop time.Duration

	// Hooks are the optional setup/teardown collaborators.
	Hooks Hooks

	// OnProgress, if set, is invoked on every progress interval with
	// current scheduler stats and a metrics snapshot. Console output
	// only; not part of the engine's correctness surface.
	OnProgress func(Stats, *metrics.Snapshot)

	// ProgressInterval controls how often OnProgress fires (default 1s).
	ProgressInterval time.Duration
}

// RunResult is the aggregate outcome of one run, produced exactly
// once at shutdown.
type RunResult struct {
	// Metrics is the frozen final snapshot.
	Metrics *metrics.Snapshot `json:"metrics"`

	// Thresholds holds the per-threshold outcomes.
	Thresholds []threshold.Result `json:"thresholds,omitempty"`

	// Passed is the overall verdict: the AND across all thresholds.
	Passed bool `json:"passed"`

	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
}

// Runner orchestrates one complete load run: validate, setup, drive
// the stage profile, drain, freeze the collector, evaluate thresholds,
// tear down.
type Runner struct {
	opts       Options
	dispatcher *Dispatcher
	collector  *metrics.Collector
}

// NewRunner validates the configuration and builds a runner. All
// scheduler and weight inconsistencies are rejected here, before the
// run starts.
func NewRunner(opts Options) (*Runner, error) {
	return NewRunnerWithCollector(opts, metrics.NewCollector())
}

// NewRunnerWithCollector builds a runner around an existing
// collector, for callers whose scenario functions already close over
// one.
func NewRunnerWithCollector(opts Options, collector *metrics.Collector) (*Runner, error) {
	if err := ValidateStages(opts.Stages); err != nil {
		return nil, fmt.Errorf("invalid stages: %w", err)
	}
	if opts.ThinkTime.Floor < 0 || opts.ThinkTime.Jitter < 0 {
		return nil, fmt.Errorf("invalid think time: floor and jitter must be >= 0")
	}

	dispatcher, err := NewDispatcher(opts.Scenarios)
	if err != nil {
		return nil, fmt.Errorf("invalid scenarios: %w", err)
	}

	return &Runner{
		opts:       opts,
		dispatcher: dispatcher,
		collector:  collector,
	}, nil
}

// Collector returns the run's metrics collector. Scenario functions
// close over it to report per-operation observations.
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// Run executes the configured load run and returns its result.
//
// A setup failure returns a nil result and an error wrapping
// ErrSetupFailed; no VUs spawn and no result is produced. A threshold
// failure is not an error: the run completed, and the verdict is in
// the result.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.opts.Hooks.Setup != nil {
		if err := r.opts.Hooks.Setup(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSetupFailed, err)
		}
	}

	scheduler, err := NewScheduler(r.opts.Stages, r.dispatcher, r.collector, r.opts.ThinkTime, r.opts.GracefulStop)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()

	progressDone := r.startProgress(scheduler)
	runErr := scheduler.Run(ctx)
	progressDone()

	// All VUs have drained; aggregates are final from here on.
	r.collector.Freeze()

	snapshot := r.collector.GetSnapshot()
	results, passed := threshold.Evaluate(snapshot, r.opts.Thresholds)

	result := &RunResult{
		Metrics:    snapshot,
		Thresholds: results,
		Passed:     passed,
		StartTime:  startTime,
		EndTime:    time.Now(),
		Duration:   time.Since(startTime),
	}

	if r.opts.Hooks.Teardown != nil {
		r.opts.Hooks.Teardown(ctx, result)
	}

	return result, runErr
}

// startProgress starts the progress callback loop and returns a stop
// function.
func (r *Runner) startProgress(scheduler *Scheduler) func() {
	if r.opts.OnProgress == nil {
		return func() {}
	}

	interval := r.opts.ProgressInterval
	if interval <= 0 {
		interval = time.Second
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.opts.OnProgress(scheduler.GetStats(), r.collector.GetSnapshot())
			}
		}
	}()

	return func() {
		close(stop)
		<-done
	}
}
