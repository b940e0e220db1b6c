package loadgen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Scenario is a weighted traffic flow injected into the engine.
//
// The engine never inspects what Run does; it only dispatches it,
// times it, and records the outcome. Run performs its own requests
// and reports any per-operation observations to the collector it
// closes over. It must report failures by returning an error rather
// than panicking.
type Scenario struct {
	// Name identifies the scenario in metrics and reports.
	Name string

	// Weight is the selection probability in (0, 1]. The weights of a
	// scenario set must sum to at most 1.0.
	Weight float64

	// Run executes one iteration of the scenario.
	Run ScenarioFunc
}

// ScenarioFunc executes one scenario iteration and reports success or
// failure. The context is cancelled only when the run is aborted hard,
// after the graceful-stop window expires.
type ScenarioFunc func(ctx context.Context) error

// Dispatcher selects scenarios by weighted random draw.
//
// The cumulative probability table is built once at construction;
// each Pick draws one uniform sample and walks the bounds in
// declaration order. Dispatcher holds no mutable selection state, so
// it is safe to call Pick concurrently from any number of virtual
// users.
type Dispatcher struct {
	scenarios []Scenario
	bounds    []float64

	// draw returns a uniform sample in [0, 1). Defaults to the global
	// math/rand source, which is safe for concurrent use.
	draw func() float64
}

// weightSumTolerance absorbs float accumulation error when checking
// that weights sum to at most 1.0.
const weightSumTolerance = 1e-9

// NewDispatcher builds a dispatcher from the declared scenario set.
//
// If the weights sum to less than 1.0 the remainder is a dead zone: a
// draw landing past the last bound selects nothing and the iteration
// is a no-op. Weights are never normalized, so the declared
// probabilities are exactly the observed ones.
func NewDispatcher(scenarios []Scenario) (*Dispatcher, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario is required")
	}

	bounds := make([]float64, len(scenarios))
	sum := 0.0

	for i, s := range scenarios {
		if s.Run == nil {
			return nil, fmt.Errorf("scenario %q has no run function", s.Name)
		}
		if s.Weight <= 0 || s.Weight > 1 {
			return nil, fmt.Errorf("scenario %q weight %v outside (0, 1]", s.Name, s.Weight)
		}
		sum += s.Weight
		bounds[i] = sum
	}

	if sum > 1+weightSumTolerance {
		return nil, fmt.Errorf("scenario weights sum to %v, must not exceed 1.0", sum)
	}

	// Snap an effectively-complete distribution to exactly 1.0 so no
	// draw can land in a spurious dead zone.
	if math.Abs(sum-1) <= weightSumTolerance {
		bounds[len(bounds)-1] = 1
	}

	return &Dispatcher{
		scenarios: scenarios,
		bounds:    bounds,
		draw:      rand.Float64,
	}, nil
}

// Pick selects one scenario by weighted random draw.
//
// Returns nil when the draw lands in the dead zone of an
// under-weighted scenario set.
func (d *Dispatcher) Pick() *Scenario {
	sample := d.draw()

	for i, bound := range d.bounds {
		if sample < bound {
			return &d.scenarios[i]
		}
	}
	return nil
}

// Scenarios returns the declared scenario set.
func (d *Dispatcher) Scenarios() []Scenario {
	return d.scenarios
}
