package testexec

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/testexec/testexec/types"
)

// SeriesStats aggregates the outcomes of one run.
type SeriesStats struct {
	Total    int
	Passed   int
	Failed   int
	Softfail int
	Done     int
	Skipped  int
	Duration time.Duration
}

// Overall returns the run's collapsed result: fail wins, then softfail.
func (s SeriesStats) Overall() types.Status {
	switch {
	case s.Failed > 0:
		return types.StatusFail
	case s.Softfail > 0:
		return types.StatusSoftfail
	default:
		return types.StatusPass
	}
}

// computeStats tallies the items of a finished or halted run. Items still
// pending count as skipped.
func computeStats(items []*types.TestItem, duration time.Duration) SeriesStats {
	stats := SeriesStats{Total: len(items), Duration: duration}
	for _, item := range items {
		switch item.Status {
		case types.StatusPass:
			stats.Passed++
		case types.StatusFail:
			stats.Failed++
		case types.StatusSoftfail:
			stats.Softfail++
		case types.StatusDone:
			stats.Done++
		default:
			stats.Skipped++
		}
	}
	return stats
}

// statusGlyph is the one-character marker shown next to each test.
func statusGlyph(s types.Status) string {
	switch s {
	case types.StatusPass:
		return "✓"
	case types.StatusFail:
		return "✗"
	case types.StatusSoftfail:
		return "~"
	case types.StatusDone:
		return "•"
	case types.StatusRunning:
		return "…"
	default:
		return "·"
	}
}

func getResultString(s types.Status) string {
	switch s {
	case types.StatusPass:
		return text.FgGreen.Sprintf("%s pass", statusGlyph(s))
	case types.StatusFail:
		return text.FgRed.Sprintf("%s fail", statusGlyph(s))
	case types.StatusSoftfail:
		return text.FgYellow.Sprintf("%s softfail", statusGlyph(s))
	case types.StatusDone:
		return fmt.Sprintf("%s done", statusGlyph(s))
	default:
		return fmt.Sprintf("%s %s", statusGlyph(s), s)
	}
}

// printResultsTable prints the state of the series to the console.
func printResultsTable(w io.Writer, seriesName string, items []*types.TestItem, stats SeriesStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Test Series Results: %s (%s)", seriesName, formatDuration(stats.Duration)))

	t.AppendHeader(table.Row{"#", "Test", "Script", "Duration", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, item := range items {
		duration := "-"
		if item.Status.Terminal() {
			duration = formatDuration(item.Duration)
		}
		t.AppendRow(table.Row{
			i + 1,
			item.Entry.Name,
			item.Entry.Script,
			duration,
			getResultString(item.Status),
			item.Error,
		})
	}

	switch stats.Overall() {
	case types.StatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.StatusSoftfail:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"",
		"TOTAL",
		"",
		formatDuration(stats.Duration),
		getResultString(stats.Overall()),
		fmt.Sprintf("%d passed, %d failed, %d skipped", stats.Passed, stats.Failed, stats.Skipped),
	})

	t.Render()
}

// summaryText renders the plain-text run summary stored alongside the logs.
func summaryText(seriesName string, items []*types.TestItem, stats SeriesStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Series: %s\n", seriesName)
	fmt.Fprintf(&b, "Duration: %s\n", formatDuration(stats.Duration))
	fmt.Fprintf(&b, "Result: %s\n\n", stats.Overall())
	for _, item := range items {
		fmt.Fprintf(&b, "%s %s (%s)", statusGlyph(item.Status), item.Entry.Name, item.Status)
		if item.Error != "" {
			fmt.Fprintf(&b, ": %s", item.Error)
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d softfail, %d done, %d skipped\n",
		stats.Passed, stats.Failed, stats.Softfail, stats.Done, stats.Skipped)
	return b.String()
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
