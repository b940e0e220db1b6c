// Package threshold evaluates pass/fail criteria against metric aggregates.
package threshold

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
)

// Stat identifies the statistic a threshold reads from an aggregate.
type Stat string

const (
	StatMin   Stat = "min"
	StatMax   Stat = "max"
	StatAvg   Stat = "avg"
	StatP50   Stat = "p50"
	StatP90   Stat = "p90"
	StatP95   Stat = "p95"
	StatP99   Stat = "p99"
	StatCount Stat = "count"
	StatRate  Stat = "rate"
)

// Op is a threshold comparator.
type Op string

const (
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Threshold is a single pass/fail criterion over a named metric.
//
// Duration statistics (min/max/avg/percentiles) carry their limit in
// milliseconds; rate limits are fractions in [0,1]; count limits are
// plain numbers.
type Threshold struct {
	// Metric is the aggregate name the threshold reads.
	Metric string `json:"metric" yaml:"metric"`

	// Stat is the statistic to extract from the aggregate.
	Stat Stat `json:"stat" yaml:"stat"`

	// Op is the comparator applied between statistic and limit.
	Op Op `json:"op" yaml:"op"`

	// Limit is the configured bound.
	Limit float64 `json:"limit" yaml:"limit"`

	// Expression is the original source text, kept for reporting.
	Expression string `json:"expression,omitempty" yaml:"-"`
}

// Result contains the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold `json:"threshold"`
	Value     float64   `json:"value"`
	Passed    bool      `json:"passed"`
	Message   string    `json:"message,omitempty"`
}

// exprRe matches expressions like "p95 < 500ms" or "rate >= 0.99".
var exprRe = regexp.MustCompile(`^(\w+)\s*(<=|>=|<|>)\s*(.+)$`)

// Parse parses a threshold expression for the named metric.
//
// Duration statistics accept Go duration strings ("500ms", "1.5s");
// rate and count accept plain numbers.
func Parse(metric, expr string) (Threshold, error) {
	matches := exprRe.FindStringSubmatch(strings.TrimSpace(expr))
	if len(matches) != 4 {
		return Threshold{}, fmt.Errorf("invalid threshold expression %q", expr)
	}

	t := Threshold{
		Metric:     metric,
		Stat:       Stat(matches[1]),
		Op:         Op(matches[2]),
		Expression: expr,
	}

	valueStr := strings.TrimSpace(matches[3])

	switch t.Stat {
	case StatMin, StatMax, StatAvg, StatP50, StatP90, StatP95, StatP99:
		d, err := time.ParseDuration(valueStr)
		if err != nil {
			return Threshold{}, fmt.Errorf("invalid duration limit in %q: %w", expr, err)
		}
		t.Limit = float64(d) / float64(time.Millisecond)
	case StatRate, StatCount:
		v, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return Threshold{}, fmt.Errorf("invalid numeric limit in %q: %w", expr, err)
		}
		t.Limit = v
	default:
		return Threshold{}, fmt.Errorf("unknown statistic %q in %q", matches[1], expr)
	}

	return t, nil
}

// Evaluate checks every threshold against the snapshot.
//
// Returns per-threshold results and the overall verdict, which is the
// AND across all thresholds. An empty threshold list passes.
func Evaluate(snap *metrics.Snapshot, thresholds []Threshold) ([]Result, bool) {
	if len(thresholds) == 0 {
		return nil, true
	}

	results := make([]Result, 0, len(thresholds))
	passed := true

	for _, t := range thresholds {
		r := evaluateOne(snap, t)
		if !r.Passed {
			passed = false
		}
		results = append(results, r)
	}

	return results, passed
}

// evaluateOne evaluates a single threshold against the snapshot.
func evaluateOne(snap *metrics.Snapshot, t Threshold) Result {
	r := Result{Threshold: t}

	value, err := extractStat(snap, t.Metric, t.Stat)
	if err != nil {
		r.Message = err.Error()
		return r
	}

	r.Value = value
	r.Passed = Compare(value, t.Op, t.Limit)

	if !r.Passed {
		r.Message = fmt.Sprintf("%s %s is %s, want %s %s",
			t.Metric, t.Stat, formatValue(t.Stat, value), t.Op, formatValue(t.Stat, t.Limit))
	}

	return r
}

// extractStat reads the named statistic from the snapshot.
// Duration statistics are returned in milliseconds.
func extractStat(snap *metrics.Snapshot, metric string, stat Stat) (float64, error) {
	switch stat {
	case StatRate:
		rs, ok := snap.Rates[metric]
		if !ok {
			return 0, fmt.Errorf("no observations recorded for rate %q", metric)
		}
		return rs.Rate, nil

	case StatCount:
		if v, ok := snap.Counters[metric]; ok {
			return float64(v), nil
		}
		if rs, ok := snap.Rates[metric]; ok {
			return float64(rs.Total), nil
		}
		if ts, ok := snap.Trends[metric]; ok {
			return float64(ts.Count), nil
		}
		return 0, fmt.Errorf("no observations recorded for %q", metric)

	default:
		ts, ok := snap.Trends[metric]
		if !ok {
			return 0, fmt.Errorf("no observations recorded for trend %q", metric)
		}
		var d time.Duration
		switch stat {
		case StatMin:
			d = ts.Min
		case StatMax:
			d = ts.Max
		case StatAvg:
			d = ts.Mean
		case StatP50:
			d = ts.P50
		case StatP90:
			d = ts.P90
		case StatP95:
			d = ts.P95
		case StatP99:
			d = ts.P99
		default:
			return 0, fmt.Errorf("unknown statistic %q", stat)
		}
		return float64(d) / float64(time.Millisecond), nil
	}
}

// Compare applies the comparator between the observed value and the
// limit. Boundary semantics are exact: a value equal to the limit
// fails a strict comparator and passes a non-strict one.
func Compare(value float64, op Op, limit float64) bool {
	switch op {
	case OpLess:
		return value < limit
	case OpLessEqual:
		return value <= limit
	case OpGreater:
		return value > limit
	case OpGreaterEqual:
		return value >= limit
	default:
		return false
	}
}

// formatValue renders a statistic value for failure messages.
func formatValue(stat Stat, v float64) string {
	switch stat {
	case StatRate:
		return fmt.Sprintf("%.4f", v)
	case StatCount:
		return fmt.Sprintf("%.0f", v)
	default:
		return time.Duration(v * float64(time.Millisecond)).String()
	}
}
