// Package metrics provides concurrent metric aggregation for load runs.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector accumulates counters, rates and latency trends for a run.
//
// Key features:
// - HDR histogram trends for accurate latency percentiles (O(1) queries)
// - Lock-free counter and rate updates for high concurrency
// - Lazy per-name aggregate creation on first observation
//
// # Thread Safety
//
// Collector is safe for concurrent use by any number of virtual user
// goroutines. Counters and rates use atomic operations; each trend
// histogram is guarded by its own mutex, so writers to different
// trends never contend. Once Freeze is called, further observations
// are discarded and reads are stable.
type Collector struct {
	counters   map[string]*atomic.Int64
	countersMu sync.RWMutex

	rates   map[string]*rateAggregate
	ratesMu sync.RWMutex

	trends   map[string]*trendAggregate
	trendsMu sync.RWMutex

	frozen atomic.Bool

	startTime time.Time

	config Config
}

// Config contains configuration for the collector's trend histograms.
type Config struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}

// rateAggregate tallies boolean observations.
type rateAggregate struct {
	passes atomic.Int64
	total  atomic.Int64
}

// trendAggregate holds a duration distribution.
// HDR histogram RecordValue is NOT thread-safe, so each trend carries
// its own mutex.
type trendAggregate struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// NewCollector creates a collector with default configuration.
func NewCollector() *Collector {
	return NewCollectorWithConfig(DefaultConfig())
}

// NewCollectorWithConfig creates a collector with custom configuration.
func NewCollectorWithConfig(config Config) *Collector {
	return &Collector{
		counters:  make(map[string]*atomic.Int64),
		rates:     make(map[string]*rateAggregate),
		trends:    make(map[string]*trendAggregate),
		startTime: time.Now(),
		config:    config,
	}
}

// IncrementCounter adds amount to the named counter.
func (c *Collector) IncrementCounter(name string, amount int64) {
	if c.frozen.Load() {
		return
	}
	c.counter(name).Add(amount)
}

// RecordRate records a pass/fail observation for the named rate.
// The derived rate is passes / total at query time.
func (c *Collector) RecordRate(name string, ok bool) {
	if c.frozen.Load() {
		return
	}

	agg := c.rate(name)
	agg.total.Add(1)
	if ok {
		agg.passes.Add(1)
	}
}

// RecordTrend records a duration observation for the named trend.
//
// Values are stored in microseconds and clamped to the configured
// histogram range.
func (c *Collector) RecordTrend(name string, d time.Duration) {
	if c.frozen.Load() {
		return
	}

	micros := d.Microseconds()
	if micros < c.config.HistogramMin {
		micros = c.config.HistogramMin
	}
	if micros > c.config.HistogramMax {
		micros = c.config.HistogramMax
	}

	agg := c.trend(name)
	agg.mu.Lock()
	agg.hist.RecordValue(micros)
	agg.mu.Unlock()
}

// counter returns the named counter, creating it on first use.
func (c *Collector) counter(name string) *atomic.Int64 {
	c.countersMu.RLock()
	ctr, ok := c.counters[name]
	c.countersMu.RUnlock()
	if ok {
		return ctr
	}

	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	if ctr, ok = c.counters[name]; ok {
		return ctr
	}
	ctr = &atomic.Int64{}
	c.counters[name] = ctr
	return ctr
}

// rate returns the named rate aggregate, creating it on first use.
func (c *Collector) rate(name string) *rateAggregate {
	c.ratesMu.RLock()
	agg, ok := c.rates[name]
	c.ratesMu.RUnlock()
	if ok {
		return agg
	}

	c.ratesMu.Lock()
	defer c.ratesMu.Unlock()
	if agg, ok = c.rates[name]; ok {
		return agg
	}
	agg = &rateAggregate{}
	c.rates[name] = agg
	return agg
}

// trend returns the named trend aggregate, creating it on first use.
func (c *Collector) trend(name string) *trendAggregate {
	c.trendsMu.RLock()
	agg, ok := c.trends[name]
	c.trendsMu.RUnlock()
	if ok {
		return agg
	}

	c.trendsMu.Lock()
	defer c.trendsMu.Unlock()
	if agg, ok = c.trends[name]; ok {
		return agg
	}
	agg = &trendAggregate{
		hist: hdrhistogram.New(c.config.HistogramMin, c.config.HistogramMax, c.config.HistogramSigFigs),
	}
	c.trends[name] = agg
	return agg
}

// Freeze marks the collector read-only. Observations arriving after
// Freeze are discarded. Called by the runner once all virtual users
// have drained, before threshold evaluation reads the aggregates.
func (c *Collector) Freeze() {
	c.frozen.Store(true)
}

// CounterValue returns the current value of the named counter.
func (c *Collector) CounterValue(name string) int64 {
	c.countersMu.RLock()
	defer c.countersMu.RUnlock()
	if ctr, ok := c.counters[name]; ok {
		return ctr.Load()
	}
	return 0
}

// RateValue returns the current pass rate for the named rate, or 0 if
// nothing has been recorded.
func (c *Collector) RateValue(name string) float64 {
	c.ratesMu.RLock()
	agg, ok := c.rates[name]
	c.ratesMu.RUnlock()
	if !ok {
		return 0
	}

	total := agg.total.Load()
	if total == 0 {
		return 0
	}
	return float64(agg.passes.Load()) / float64(total)
}

// TrendStats returns the statistics for the named trend and whether
// the trend exists.
func (c *Collector) TrendStats(name string) (TrendStats, bool) {
	c.trendsMu.RLock()
	agg, ok := c.trends[name]
	c.trendsMu.RUnlock()
	if !ok {
		return TrendStats{}, false
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	return statsFromHistogram(agg.hist), true
}

// GetSnapshot returns a point-in-time view of all aggregates.
//
// Reads taken while virtual users are still writing are consistent
// per aggregate but not across aggregates; snapshots are only
// guaranteed final after Freeze.
func (c *Collector) GetSnapshot() *Snapshot {
	snap := &Snapshot{
		Counters:  make(map[string]int64),
		Rates:     make(map[string]RateStats),
		Trends:    make(map[string]TrendStats),
		StartTime: c.startTime,
		Elapsed:   time.Since(c.startTime),
		Timestamp: time.Now(),
	}

	c.countersMu.RLock()
	for name, ctr := range c.counters {
		snap.Counters[name] = ctr.Load()
	}
	c.countersMu.RUnlock()

	c.ratesMu.RLock()
	for name, agg := range c.rates {
		passes := agg.passes.Load()
		total := agg.total.Load()
		stats := RateStats{Passes: passes, Fails: total - passes, Total: total}
		if total > 0 {
			stats.Rate = float64(passes) / float64(total)
		}
		snap.Rates[name] = stats
	}
	c.ratesMu.RUnlock()

	c.trendsMu.RLock()
	trendAggs := make(map[string]*trendAggregate, len(c.trends))
	for name, agg := range c.trends {
		trendAggs[name] = agg
	}
	c.trendsMu.RUnlock()

	for name, agg := range trendAggs {
		agg.mu.Lock()
		snap.Trends[name] = statsFromHistogram(agg.hist)
		agg.mu.Unlock()
	}

	return snap
}

// statsFromHistogram extracts trend statistics from an HDR histogram.
// Caller must hold the trend's mutex.
func statsFromHistogram(hist *hdrhistogram.Histogram) TrendStats {
	return TrendStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean()) * time.Microsecond,
		StdDev: time.Duration(hist.StdDev()) * time.Microsecond,
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}

// Snapshot contains a point-in-time view of all aggregates.
type Snapshot struct {
	Counters map[string]int64      `json:"counters"`
	Rates    map[string]RateStats  `json:"rates"`
	Trends   map[string]TrendStats `json:"trends"`

	StartTime time.Time     `json:"startTime"`
	Elapsed   time.Duration `json:"elapsed"`
	Timestamp time.Time     `json:"timestamp"`
}

// MetricNames returns the names of all aggregates in the snapshot,
// sorted, for stable report ordering.
func (s *Snapshot) MetricNames() []string {
	names := make([]string, 0, len(s.Counters)+len(s.Rates)+len(s.Trends))
	for name := range s.Counters {
		names = append(names, name)
	}
	for name := range s.Rates {
		names = append(names, name)
	}
	for name := range s.Trends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RateStats contains the tallies and derived rate for a rate metric.
type RateStats struct {
	Passes int64   `json:"passes"`
	Fails  int64   `json:"fails"`
	Total  int64   `json:"total"`
	Rate   float64 `json:"rate"`
}

// TrendStats contains latency distribution statistics.
type TrendStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}
