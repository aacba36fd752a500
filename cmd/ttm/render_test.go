package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/report"
	"ttm/internal/status"
	"ttm/internal/tracker"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Alpha", statusOK, "00:05:00", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Alpha:", "[OK] 00:05:00")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("API", statusWarn, "unreachable", true)
	if !strings.HasPrefix(got, ansiYellow) {
		t.Fatalf("expected yellow prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestColorSwatchPlainWithoutColor(t *testing.T) {
	if got := colorSwatch("#FF0000", false); got != "●" {
		t.Fatalf("expected bare swatch, got %q", got)
	}
}

func TestRenderTableWithFooter(t *testing.T) {
	out := renderTable(
		[]string{"Project", "Time"},
		[][]string{{"Alpha", "1h 5m"}, {"Beta"}},
		[]columnAlignment{alignLeft, alignRight},
		[]string{"Total", "1h 5m"},
	)
	for _, want := range []string{"PROJECT", "Alpha", "Beta", "Total", "1h 5m"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil, nil) != "" {
		t.Fatal("expected empty table for no headers")
	}
}

func TestRenderStatusShowsRunningProjects(t *testing.T) {
	snap := status.Snapshot{
		ActiveCount: 1,
		TodayTotal:  90 * time.Minute,
		Projects: []status.ProjectStatus{
			{Name: "Alpha", Running: true, Elapsed: 5 * time.Minute, Today: time.Hour},
			{Name: "Beta", Today: 30 * time.Minute},
		},
	}
	out := renderStatus(snap, false)
	requireContains(t, out, "Alpha")
	requireContains(t, out, report.FormatClock(5*time.Minute))
	requireContains(t, out, report.FormatShort(90*time.Minute))
	if strings.Contains(out, "Beta") {
		t.Fatalf("idle project should not be listed: %q", out)
	}

	idle := renderStatus(status.Snapshot{}, false)
	requireContains(t, idle, "no timers running")
}

func TestRenderTodayEmptyAndTotals(t *testing.T) {
	if got := renderToday(tracker.TodaySummary{Date: "2026-04-02"}, false); !strings.Contains(got, "Nothing tracked on 2026-04-02") {
		t.Fatalf("unexpected empty render %q", got)
	}
	out := renderToday(tracker.TodaySummary{
		Date:        "2026-04-02",
		Total:       2 * time.Hour,
		ActiveCount: 1,
		Shares: []report.Share{
			{Name: "Alpha", Duration: 90 * time.Minute, Percent: 75},
			{Name: "Beta", Duration: 30 * time.Minute, Percent: 25},
		},
	}, false)
	requireContains(t, out, "75%")
	requireContains(t, out, "2026-04-02 (1 running)")
	requireContains(t, out, report.FormatShort(2*time.Hour))
}

func TestRenderHistoryMarksRunningEntries(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.Local)
	end := now.Add(-time.Hour)
	result := tracker.HistoryResult{
		Days: []report.DayGroup{{
			DateKey: "2026-04-02",
			Label:   "Today",
			Total:   90 * time.Minute,
			Entries: []ledger.TimeEntry{
				{ID: "e2", ProjectID: "p1", StartTime: now.Add(-30 * time.Minute)},
				{ID: "e1", ProjectID: "gone", StartTime: now.Add(-2 * time.Hour), EndTime: &end},
			},
		}},
		Names: map[string]string{"p1": "Alpha"},
	}
	out := renderHistory(result, now, false)
	requireContains(t, out, "Today")
	requireContains(t, out, "running")
	requireContains(t, out, "Alpha")
	requireContains(t, out, "gone")
	if got := renderHistory(tracker.HistoryResult{}, now, false); got != "No entries yet\n" {
		t.Fatalf("unexpected empty history %q", got)
	}
}
