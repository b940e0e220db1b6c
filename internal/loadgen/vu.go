// Package loadgen provides the staged virtual-user load generation engine.
package loadgen

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
)

// Engine-level metric names recorded for every virtual-user iteration.
const (
	MetricIterations        = "iterations"
	MetricIterationDuration = "iteration_duration"
	MetricIterationSuccess  = "iteration_success"
)

// VUState represents the lifecycle state of a virtual user.
type VUState int32

const (
	// VUStateIdle indicates the VU is ready but not currently running.
	VUStateIdle VUState = iota
	// VUStateRunning indicates the VU is actively running iterations.
	VUStateRunning
	// VUStateStopping indicates the VU has been requested to stop.
	VUStateStopping
	// VUStateStopped indicates the VU has fully stopped.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateStopping:
		return "stopping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ThinkTime is the randomized pause between a virtual user's
// iterations, drawn uniformly from [Floor, Floor+Jitter].
type ThinkTime struct {
	Floor  time.Duration
	Jitter time.Duration
}

// next draws one think-time value.
func (t ThinkTime) next() time.Duration {
	if t.Jitter <= 0 {
		return t.Floor
	}
	return t.Floor + time.Duration(rand.Int63n(int64(t.Jitter)+1))
}

// VirtualUser is one simulated client running scenario iterations in
// a cooperative loop: dispatch a scenario, execute it, record the
// outcome, sleep a randomized think-time, check for cancellation.
//
// Cancellation is cooperative and observed only between iterations; a
// scenario execution already in flight always runs to completion, so
// no observation is ever recorded for half-finished work. The context
// passed to Run acts as a hard abort used after the graceful-stop
// window expires.
type VirtualUser struct {
	// Unique identifier for this VU
	ID int

	dispatcher *Dispatcher
	collector  *metrics.Collector
	think      ThinkTime

	// Lifecycle state (atomic for lock-free reads)
	state atomic.Int32

	// Stop signal
	stopCh chan struct{}

	// Done signal (closed when VU fully stops)
	doneCh chan struct{}

	// Iteration counter
	iterations atomic.Int64
}

// NewVirtualUser creates a virtual user.
func NewVirtualUser(id int, dispatcher *Dispatcher, collector *metrics.Collector, think ThinkTime) *VirtualUser {
	return &VirtualUser{
		ID:         id,
		dispatcher: dispatcher,
		collector:  collector,
		think:      think,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// GetState returns the current VU state.
func (vu *VirtualUser) GetState() VUState {
	return VUState(vu.state.Load())
}

// Iterations returns the number of iterations this VU has started.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iterations.Load()
}

// Run executes scenario iterations until the VU is stopped or the
// context is cancelled. It is the VU goroutine's entry point and
// always marks the VU stopped on return.
func (vu *VirtualUser) Run(ctx context.Context) {
	defer vu.MarkStopped()

	for {
		select {
		case <-ctx.Done():
			return
		case <-vu.stopCh:
			return
		default:
		}

		if vu.GetState() == VUStateStopping || vu.GetState() == VUStateStopped {
			return
		}

		vu.runIteration(ctx)

		if !vu.applyThinkTime(ctx) {
			return
		}
	}
}

// runIteration executes a single dispatch-execute-record cycle.
func (vu *VirtualUser) runIteration(ctx context.Context) {
	vu.state.Store(int32(VUStateRunning))
	vu.iterations.Add(1)

	scenario := vu.dispatcher.Pick()
	if scenario == nil {
		// Dead-zone draw: only the think-time happens this iteration.
		return
	}

	start := time.Now()
	err := scenario.Run(ctx)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		// Hard abort interrupted the scenario mid-flight; discard the
		// partial observation.
		return
	}

	vu.collector.IncrementCounter(MetricIterations, 1)
	vu.collector.RecordTrend(MetricIterationDuration, elapsed)
	vu.collector.RecordRate(MetricIterationSuccess, err == nil)

	if vu.GetState() == VUStateRunning {
		vu.state.Store(int32(VUStateIdle))
	}
}

// applyThinkTime sleeps the randomized think-time. Returns false if
// the VU was stopped or the context cancelled while sleeping.
func (vu *VirtualUser) applyThinkTime(ctx context.Context) bool {
	wait := vu.think.next()
	if wait <= 0 {
		return true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-vu.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// RequestStop signals the VU to stop after completing the current
// iteration.
func (vu *VirtualUser) RequestStop() {
	currentState := VUState(vu.state.Load())
	if currentState == VUStateStopped {
		return
	}

	if vu.state.CompareAndSwap(int32(VUStateRunning), int32(VUStateStopping)) ||
		vu.state.CompareAndSwap(int32(VUStateIdle), int32(VUStateStopping)) {
		close(vu.stopCh)
	}
}

// WaitForStop waits for the VU to stop with a timeout.
//
// Returns true if the VU stopped within the timeout, false otherwise.
func (vu *VirtualUser) WaitForStop(timeout time.Duration) bool {
	select {
	case <-vu.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MarkStopped marks the VU as fully stopped.
func (vu *VirtualUser) MarkStopped() {
	vu.state.Store(int32(VUStateStopped))
	select {
	case <-vu.doneCh:
		// Already closed
	default:
		close(vu.doneCh)
	}
}
