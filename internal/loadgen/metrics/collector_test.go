package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	if c == nil {
		t.Fatal("NewCollector() returned nil")
	}

	snapshot := c.GetSnapshot()
	if len(snapshot.Counters) != 0 || len(snapshot.Rates) != 0 || len(snapshot.Trends) != 0 {
		t.Errorf("new collector should have no aggregates, got %d/%d/%d",
			len(snapshot.Counters), len(snapshot.Rates), len(snapshot.Trends))
	}
}

func TestCollector_IncrementCounter(t *testing.T) {
	c := NewCollector()

	c.IncrementCounter("requests", 1)
	c.IncrementCounter("requests", 1)
	c.IncrementCounter("requests", 3)

	if got := c.CounterValue("requests"); got != 5 {
		t.Errorf("CounterValue(requests) = %d, want 5", got)
	}
	if got := c.CounterValue("missing"); got != 0 {
		t.Errorf("CounterValue(missing) = %d, want 0", got)
	}
}

func TestCollector_RecordRate(t *testing.T) {
	c := NewCollector()

	// 7 passes, 3 fails must give exactly 0.7
	for i := 0; i < 7; i++ {
		c.RecordRate("checks", true)
	}
	for i := 0; i < 3; i++ {
		c.RecordRate("checks", false)
	}

	if got := c.RateValue("checks"); got != 0.7 {
		t.Errorf("RateValue(checks) = %v, want exactly 0.7", got)
	}

	snapshot := c.GetSnapshot()
	rs := snapshot.Rates["checks"]
	if rs.Passes != 7 || rs.Fails != 3 || rs.Total != 10 {
		t.Errorf("Rates[checks] = %+v, want 7/3/10", rs)
	}
}

func TestCollector_RecordTrend(t *testing.T) {
	c := NewCollector()

	for _, ms := range []int{100, 200, 300, 400, 500} {
		c.RecordTrend("latency", time.Duration(ms)*time.Millisecond)
	}

	stats, ok := c.TrendStats("latency")
	if !ok {
		t.Fatal("TrendStats(latency) not found")
	}

	if stats.Count != 5 {
		t.Errorf("Count = %d, want 5", stats.Count)
	}

	// HDR histogram at 3 significant figures, so allow binning tolerance.
	tolerance := time.Millisecond
	if diff := stats.P50 - 300*time.Millisecond; diff < -tolerance || diff > tolerance {
		t.Errorf("P50 = %v, want ~300ms", stats.P50)
	}
	if diff := stats.Min - 100*time.Millisecond; diff < -tolerance || diff > tolerance {
		t.Errorf("Min = %v, want ~100ms", stats.Min)
	}
	if diff := stats.Max - 500*time.Millisecond; diff < -tolerance || diff > tolerance {
		t.Errorf("Max = %v, want ~500ms", stats.Max)
	}
	if diff := stats.Mean - 300*time.Millisecond; diff < -tolerance || diff > tolerance {
		t.Errorf("Mean = %v, want ~300ms", stats.Mean)
	}
}

func TestCollector_TrendPercentiles(t *testing.T) {
	c := NewCollector()

	for i := 1; i <= 100; i++ {
		c.RecordTrend("latency", time.Duration(i)*time.Millisecond)
	}

	stats, _ := c.TrendStats("latency")

	tolerance := 2 * time.Millisecond
	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"P50", stats.P50, 50 * time.Millisecond},
		{"P90", stats.P90, 90 * time.Millisecond},
		{"P95", stats.P95, 95 * time.Millisecond},
		{"P99", stats.P99, 99 * time.Millisecond},
	}
	for _, check := range checks {
		if diff := check.got - check.want; diff < -tolerance || diff > tolerance {
			t.Errorf("%s = %v, want ~%v", check.name, check.got, check.want)
		}
	}
}

func TestCollector_Freeze(t *testing.T) {
	c := NewCollector()

	c.IncrementCounter("requests", 1)
	c.RecordRate("checks", true)
	c.RecordTrend("latency", 10*time.Millisecond)

	c.Freeze()

	// Observations after freeze are discarded.
	c.IncrementCounter("requests", 10)
	c.RecordRate("checks", false)
	c.RecordTrend("latency", 500*time.Millisecond)

	snapshot := c.GetSnapshot()
	if snapshot.Counters["requests"] != 1 {
		t.Errorf("Counters[requests] = %d after freeze, want 1", snapshot.Counters["requests"])
	}
	if snapshot.Rates["checks"].Total != 1 {
		t.Errorf("Rates[checks].Total = %d after freeze, want 1", snapshot.Rates["checks"].Total)
	}
	if snapshot.Trends["latency"].Count != 1 {
		t.Errorf("Trends[latency].Count = %d after freeze, want 1", snapshot.Trends["latency"].Count)
	}
}

func TestCollector_ConcurrentWriters(t *testing.T) {
	c := NewCollector()

	const writers = 50
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c.IncrementCounter("iterations", 1)
				c.RecordRate("checks", i%2 == 0)
				c.RecordTrend("latency", time.Duration(i+1)*time.Millisecond)
			}
		}(w)
	}
	wg.Wait()

	snapshot := c.GetSnapshot()
	if got := snapshot.Counters["iterations"]; got != writers*perWriter {
		t.Errorf("Counters[iterations] = %d, want %d", got, writers*perWriter)
	}
	if got := snapshot.Rates["checks"].Total; got != writers*perWriter {
		t.Errorf("Rates[checks].Total = %d, want %d", got, writers*perWriter)
	}
	if got := snapshot.Trends["latency"].Count; got != writers*perWriter {
		t.Errorf("Trends[latency].Count = %d, want %d", got, writers*perWriter)
	}
}

func TestSnapshot_MetricNames(t *testing.T) {
	c := NewCollector()
	c.IncrementCounter("b_counter", 1)
	c.RecordRate("a_rate", true)
	c.RecordTrend("c_trend", time.Millisecond)

	names := c.GetSnapshot().MetricNames()
	want := []string{"a_rate", "b_counter", "c_trend"}
	if len(names) != len(want) {
		t.Fatalf("MetricNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("MetricNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
