package loadgen

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
)

func newTestDispatcher(t *testing.T, run ScenarioFunc) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher([]Scenario{{Name: "test", Weight: 1.0, Run: run}})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func TestVirtualUser_StateString(t *testing.T) {
	states := map[VUState]string{
		VUStateIdle:     "idle",
		VUStateRunning:  "running",
		VUStateStopping: "stopping",
		VUStateStopped:  "stopped",
		VUState(99):     "unknown",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("VUState(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestVirtualUser_RecordsIterations(t *testing.T) {
	collector := metrics.NewCollector()

	var executions atomic.Int64
	d := newTestDispatcher(t, func(ctx context.Context) error {
		executions.Add(1)
		return nil
	})

	vu := NewVirtualUser(1, d, collector, ThinkTime{})

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	// Let it iterate, then stop between iterations.
	time.Sleep(50 * time.Millisecond)
	vu.RequestStop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("VU did not stop after RequestStop")
	}

	n := executions.Load()
	if n == 0 {
		t.Fatal("scenario never executed")
	}

	snap := collector.GetSnapshot()
	if got := snap.Counters[MetricIterations]; got != n {
		t.Errorf("Counters[%s] = %d, want %d", MetricIterations, got, n)
	}
	if got := snap.Rates[MetricIterationSuccess]; got.Passes != n {
		t.Errorf("Rates[%s].Passes = %d, want %d", MetricIterationSuccess, got.Passes, n)
	}
	if got := snap.Trends[MetricIterationDuration]; got.Count != n {
		t.Errorf("Trends[%s].Count = %d, want %d", MetricIterationDuration, got.Count, n)
	}
}

func TestVirtualUser_ScenarioFailureDoesNotStopTask(t *testing.T) {
	collector := metrics.NewCollector()

	var executions atomic.Int64
	d := newTestDispatcher(t, func(ctx context.Context) error {
		executions.Add(1)
		return errors.New("bad response")
	})

	vu := NewVirtualUser(1, d, collector, ThinkTime{})

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	vu.RequestStop()
	<-done

	if executions.Load() < 2 {
		t.Errorf("executions = %d, want task to keep iterating after failures", executions.Load())
	}

	snap := collector.GetSnapshot()
	rs := snap.Rates[MetricIterationSuccess]
	if rs.Passes != 0 || rs.Fails != rs.Total || rs.Total == 0 {
		t.Errorf("Rates[%s] = %+v, want all failures", MetricIterationSuccess, rs)
	}
}

func TestVirtualUser_CancelledDuringThinkTime(t *testing.T) {
	collector := metrics.NewCollector()

	var executions atomic.Int64
	d := newTestDispatcher(t, func(ctx context.Context) error {
		executions.Add(1)
		return nil
	})

	// Think time much longer than the test: the VU will be inside its
	// think sleep when stopped.
	vu := NewVirtualUser(1, d, collector, ThinkTime{Floor: time.Hour})

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	vu.RequestStop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("VU did not terminate while sleeping in think-time")
	}

	if n := executions.Load(); n != 1 {
		t.Errorf("executions = %d, want exactly 1 (no new iteration after cancel)", n)
	}
	if got := collector.CounterValue(MetricIterations); got != 1 {
		t.Errorf("Counters[%s] = %d, want 1", MetricIterations, got)
	}
}

func TestVirtualUser_HardAbortDiscardsPartialObservation(t *testing.T) {
	collector := metrics.NewCollector()

	started := make(chan struct{})
	d := newTestDispatcher(t, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	vu := NewVirtualUser(1, d, collector, ThinkTime{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		vu.Run(ctx)
		close(done)
	}()

	<-started
	cancel()
	<-done

	// The interrupted execution must not be recorded.
	if got := collector.CounterValue(MetricIterations); got != 0 {
		t.Errorf("Counters[%s] = %d, want 0 for aborted iteration", MetricIterations, got)
	}
}

func TestVirtualUser_DeadZoneIterationRecordsNothing(t *testing.T) {
	collector := metrics.NewCollector()

	var executions atomic.Int64
	d, err := NewDispatcher([]Scenario{
		{Name: "rare", Weight: 0.2, Run: func(ctx context.Context) error {
			executions.Add(1)
			return nil
		}},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	d.draw = func() float64 { return 0.9 } // always in the dead zone

	vu := NewVirtualUser(1, d, collector, ThinkTime{Floor: time.Millisecond})

	done := make(chan struct{})
	go func() {
		vu.Run(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	vu.RequestStop()
	<-done

	if executions.Load() != 0 {
		t.Errorf("executions = %d, want 0 for dead-zone draws", executions.Load())
	}
	if got := collector.CounterValue(MetricIterations); got != 0 {
		t.Errorf("Counters[%s] = %d, want 0 for dead-zone draws", MetricIterations, got)
	}
}

func TestThinkTime_Next(t *testing.T) {
	think := ThinkTime{Floor: 10 * time.Millisecond, Jitter: 20 * time.Millisecond}

	for i := 0; i < 1000; i++ {
		got := think.next()
		if got < 10*time.Millisecond || got > 30*time.Millisecond {
			t.Fatalf("next() = %v, want in [10ms, 30ms]", got)
		}
	}

	fixed := ThinkTime{Floor: 5 * time.Millisecond}
	if got := fixed.next(); got != 5*time.Millisecond {
		t.Errorf("next() without jitter = %v, want 5ms", got)
	}
}
