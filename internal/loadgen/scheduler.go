package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
)

// Stage is one time-bounded segment of the concurrency profile. The
// target concurrency ramps linearly from the previous stage's target
// (0 before the first stage) to Target over Duration; identical
// start and end targets give a flat hold.
type Stage struct {
	// Duration of this stage
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Target concurrency at the end of this stage
	Target int `json:"target" yaml:"target"`
}

// ValidateStages rejects inconsistent stage lists before a run starts.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}

	for i, stage := range stages {
		if stage.Duration <= 0 {
			return fmt.Errorf("stage %d: duration must be > 0", i)
		}
		if stage.Target < 0 {
			return fmt.Errorf("stage %d: target must be >= 0", i)
		}
	}

	return nil
}

// TotalDuration returns the summed duration of all stages.
func TotalDuration(stages []Stage) time.Duration {
	var total time.Duration
	for _, stage := range stages {
		total += stage.Duration
	}
	return total
}

// TargetAt computes the instantaneous target concurrency at the given
// elapsed time by linear interpolation within the active stage. Past
// the last stage boundary it returns the final stage's target.
func TargetAt(stages []Stage, elapsed time.Duration) int {
	var stageStart time.Duration
	prevTarget := 0

	for _, stage := range stages {
		stageEnd := stageStart + stage.Duration

		if elapsed < stageEnd {
			progress := float64(elapsed-stageStart) / float64(stage.Duration)
			if progress < 0 {
				progress = 0
			}
			if progress > 1 {
				progress = 1
			}

			target := float64(prevTarget) + float64(stage.Target-prevTarget)*progress
			return int(target + 0.5) // Round to nearest
		}

		prevTarget = stage.Target
		stageStart = stageEnd
	}

	if len(stages) > 0 {
		return stages[len(stages)-1].Target
	}
	return 0
}

// stageIndexAt returns the index of the stage active at elapsed, or
// the last index once all stages have passed.
func stageIndexAt(stages []Stage, elapsed time.Duration) int {
	var stageStart time.Duration
	for i, stage := range stages {
		stageEnd := stageStart + stage.Duration
		if elapsed < stageEnd {
			return i
		}
		stageStart = stageEnd
	}
	return len(stages) - 1
}

// Scheduler drives the active virtual-user set through the stage
// profile. On a fixed tick it recomputes the target concurrency and
// spawns or retires VUs to converge; once the last stage's duration
// has elapsed it requests all VUs to stop, waits out the graceful
// window, then hard-aborts stragglers.
//
// The VU slice is the one piece of shared mutable state outside the
// metrics collector; all spawn/retire actions happen on the
// scheduler's tick goroutine under vusMu.
type Scheduler struct {
	stages       []Stage
	dispatcher   *Dispatcher
	collector    *metrics.Collector
	think        ThinkTime
	gracefulStop time.Duration

	// Active VUs. Retired VUs are trimmed from the tail, matching the
	// spawn order.
	vus   []*VirtualUser
	vusMu sync.Mutex

	wg       sync.WaitGroup
	nextVUID atomic.Int32

	startTime time.Time
	activeVUs atomic.Int32
	targetVUs atomic.Int32
	running   atomic.Bool
}

// convergeTick is how often the scheduler compares active VU count to
// the interpolated target. 100ms keeps ramps smooth without step-wise
// throughput jumps.
const convergeTick = 100 * time.Millisecond

// defaultGracefulStop bounds how long retiring VUs may take to finish
// their in-flight iteration.
const defaultGracefulStop = 30 * time.Second

// NewScheduler creates a scheduler over a validated stage profile.
func NewScheduler(stages []Stage, dispatcher *Dispatcher, collector *metrics.Collector, think ThinkTime, gracefulStop time.Duration) (*Scheduler, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	if gracefulStop <= 0 {
		gracefulStop = defaultGracefulStop
	}

	return &Scheduler{
		stages:       stages,
		dispatcher:   dispatcher,
		collector:    collector,
		think:        think,
		gracefulStop: gracefulStop,
	}, nil
}

// Run executes the stage profile and blocks until every VU has
// drained. Returns early only if the parent context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startTime = time.Now()
	s.running.Store(true)
	defer s.running.Store(false)

	total := TotalDuration(s.stages)

	// Hard-abort context handed to VU goroutines; cancelled only after
	// the graceful window so in-flight iterations can finish.
	vuCtx, hardAbort := context.WithCancel(context.Background())
	defer hardAbort()

	ticker := time.NewTicker(convergeTick)
	defer ticker.Stop()

	deadline := time.NewTimer(total)
	defer deadline.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline.C:
			break loop
		case <-ticker.C:
			target := TargetAt(s.stages, time.Since(s.startTime))
			s.targetVUs.Store(int32(target))
			s.converge(vuCtx, target)
		}
	}

	s.drain(hardAbort)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// converge spawns or retires VUs to match the target count.
func (s *Scheduler) converge(vuCtx context.Context, target int) {
	s.vusMu.Lock()
	defer s.vusMu.Unlock()

	current := len(s.vus)

	if target > current {
		for i := current; i < target; i++ {
			vu := NewVirtualUser(int(s.nextVUID.Add(1)), s.dispatcher, s.collector, s.think)
			s.vus = append(s.vus, vu)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				vu.Run(vuCtx)
			}()
		}
	} else if target < current {
		for i := current - 1; i >= target; i-- {
			s.vus[i].RequestStop()
		}
		s.vus = s.vus[:target]
	}

	s.activeVUs.Store(int32(target))
}

// drain stops all remaining VUs, waits out the graceful window, then
// hard-aborts whatever is still in flight.
func (s *Scheduler) drain(hardAbort context.CancelFunc) {
	s.vusMu.Lock()
	for _, vu := range s.vus {
		vu.RequestStop()
	}
	s.vus = nil
	s.vusMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.gracefulStop):
		hardAbort()
		<-done
	}

	s.activeVUs.Store(0)
	s.targetVUs.Store(0)
}

// Stats is a point-in-time view of scheduler progress, used for live
// console output.
type Stats struct {
	Elapsed       time.Duration
	TotalDuration time.Duration
	Progress      float64
	ActiveVUs     int
	TargetVUs     int
	CurrentStage  int
	TotalStages   int
}

// GetStats returns current scheduler statistics.
func (s *Scheduler) GetStats() Stats {
	var elapsed time.Duration
	if !s.startTime.IsZero() {
		elapsed = time.Since(s.startTime)
	}

	total := TotalDuration(s.stages)
	progress := 0.0
	if total > 0 {
		progress = float64(elapsed) / float64(total)
		if progress > 1 {
			progress = 1
		}
	}
	if !s.running.Load() && !s.startTime.IsZero() {
		progress = 1
	}

	return Stats{
		Elapsed:       elapsed,
		TotalDuration: total,
		Progress:      progress,
		ActiveVUs:     int(s.activeVUs.Load()),
		TargetVUs:     int(s.targetVUs.Load()),
		CurrentStage:  stageIndexAt(s.stages, elapsed),
		TotalStages:   len(s.stages),
	}
}
