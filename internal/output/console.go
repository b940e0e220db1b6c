// Package output renders run progress and the final summary to the
// console. Human-readable only; nothing here affects the verdict.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen"
	"github.com/narender-kumar-asurion/search-poc-sub001/internal/loadgen/metrics"
)

// Console writes progress lines during a run and a summary at the end.
type Console struct {
	writer  io.Writer
	scheme  *ColorScheme
	isTTY   bool
	noColor bool
	quiet   bool
}

// NewConsole creates a console bound to the writer. Colors are
// enabled only for terminals, and NO_COLOR is honored.
func NewConsole(w io.Writer, quiet bool) *Console {
	if w == nil {
		w = os.Stdout
	}

	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	noColor := !tty || os.Getenv("NO_COLOR") != ""
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}

	return &Console{
		writer:  w,
		scheme:  scheme,
		isTTY:   tty,
		noColor: noColor,
		quiet:   quiet,
	}
}

// PrintHeader prints the run header.
func (c *Console) PrintHeader(name string, total time.Duration, stages int) {
	if c.quiet {
		return
	}

	line := strings.Repeat("━", 56)
	fmt.Fprintln(c.writer, c.scheme.Title.Sprint(line))
	fmt.Fprintf(c.writer, "%s\n", c.scheme.Title.Sprintf("%s", name))
	fmt.Fprintf(c.writer, "%s over %d stage(s)\n", formatDuration(total), stages)
	fmt.Fprintln(c.writer, c.scheme.Title.Sprint(line))
}

// PrintProgress prints a one-line status update. On a terminal the
// line is rewritten in place; otherwise each update is its own line
// (CI logs).
func (c *Console) PrintProgress(stats loadgen.Stats, snap *metrics.Snapshot) {
	if c.quiet {
		return
	}

	iterations := snap.Counters[loadgen.MetricIterations]
	okRate := 1.0
	if rs, ok := snap.Rates[loadgen.MetricIterationSuccess]; ok && rs.Total > 0 {
		okRate = rs.Rate
	}
	p95 := time.Duration(0)
	if ts, ok := snap.Trends[loadgen.MetricIterationDuration]; ok {
		p95 = ts.P95
	}

	line := fmt.Sprintf("[%s] stage %d/%d | VUs %d/%d | iterations %d | p95 %s | ok %.1f%%",
		formatDuration(stats.Elapsed),
		stats.CurrentStage+1, stats.TotalStages,
		stats.ActiveVUs, stats.TargetVUs,
		iterations,
		formatDuration(p95),
		okRate*100)

	if c.isTTY {
		fmt.Fprintf(c.writer, "\r\033[K%s", line)
	} else {
		fmt.Fprintln(c.writer, line)
	}
}

// PrintSetupError reports a setup-hook failure. Distinct from a
// threshold failure: the run never started.
func (c *Console) PrintSetupError(err error) {
	fmt.Fprintf(c.writer, "%s setup failed, no load was generated: %v\n", ErrorIcon(c.noColor), err)
}

// PrintSummary prints the final run summary and threshold outcomes.
func (c *Console) PrintSummary(result *loadgen.RunResult) {
	if c.isTTY && !c.quiet {
		fmt.Fprintln(c.writer)
	}

	if c.quiet {
		if result.Passed {
			fmt.Fprintln(c.writer, c.scheme.Success.Sprint("PASSED"))
		} else {
			fmt.Fprintln(c.writer, c.scheme.Error.Sprint("FAILED"))
		}
		return
	}

	line := strings.Repeat("━", 56)
	verdict := c.scheme.Success.Sprint("PASSED ✓")
	if !result.Passed {
		verdict = c.scheme.Error.Sprint("FAILED ✗")
	}

	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, c.scheme.Title.Sprint(line))
	fmt.Fprintf(c.writer, "Run %s in %s\n", verdict, formatDuration(result.Duration))
	fmt.Fprintln(c.writer, c.scheme.Title.Sprint(line))

	snap := result.Metrics

	if len(snap.Counters) > 0 {
		fmt.Fprintln(c.writer, c.scheme.Label.Sprint("\nCounters:"))
		for _, name := range snap.MetricNames() {
			if v, ok := snap.Counters[name]; ok {
				fmt.Fprintf(c.writer, "  %-32s %d\n", name, v)
			}
		}
	}

	if len(snap.Rates) > 0 {
		fmt.Fprintln(c.writer, c.scheme.Label.Sprint("\nRates:"))
		for _, name := range snap.MetricNames() {
			if rs, ok := snap.Rates[name]; ok {
				fmt.Fprintf(c.writer, "  %-32s %.2f%%  (%d/%d)\n", name, rs.Rate*100, rs.Passes, rs.Total)
			}
		}
	}

	if len(snap.Trends) > 0 {
		fmt.Fprintln(c.writer, c.scheme.Label.Sprint("\nTrends:"))
		for _, name := range snap.MetricNames() {
			if ts, ok := snap.Trends[name]; ok {
				fmt.Fprintf(c.writer, "  %-32s avg=%s min=%s p50=%s p90=%s p95=%s p99=%s max=%s (n=%d)\n",
					name,
					formatDuration(ts.Mean), formatDuration(ts.Min),
					formatDuration(ts.P50), formatDuration(ts.P90),
					formatDuration(ts.P95), formatDuration(ts.P99),
					formatDuration(ts.Max), ts.Count)
			}
		}
	}

	if len(result.Thresholds) > 0 {
		fmt.Fprintln(c.writer, c.scheme.Label.Sprint("\nThresholds:"))
		for _, tr := range result.Thresholds {
			icon := SuccessIcon(c.noColor)
			if !tr.Passed {
				icon = ErrorIcon(c.noColor)
			}
			fmt.Fprintf(c.writer, "  %s %s: %s", icon, tr.Threshold.Metric, tr.Threshold.Expression)
			if tr.Message != "" {
				fmt.Fprintf(c.writer, "  (%s)", tr.Message)
			}
			fmt.Fprintln(c.writer)
		}
	}

	fmt.Fprintln(c.writer)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
