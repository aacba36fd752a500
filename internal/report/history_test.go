package report_test

import (
	"testing"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/report"
)

func TestHistoryGroupsByStartDayNewestFirst(t *testing.T) {
	now := at(10, 12, 0, 0)
	entries := []ledger.TimeEntry{
		{ID: "old", StartTime: at(3, 9, 0, 0), EndTime: ended(at(3, 9, 30, 0))},
		{ID: "y1", StartTime: at(9, 23, 59, 58), EndTime: ended(at(10, 0, 0, 5))},
		{ID: "t1", StartTime: at(10, 8, 0, 0), EndTime: ended(at(10, 9, 0, 0))},
		{ID: "t2", StartTime: at(10, 11, 0, 0)},
	}

	groups := report.History(entries, now)
	if len(groups) != 3 {
		t.Fatalf("expected 3 days, got %d", len(groups))
	}

	today := groups[0]
	if today.DateKey != "2025-03-10" || today.Label != "Today" {
		t.Fatalf("unexpected first group: %+v", today)
	}
	if today.Total != 2*time.Hour {
		t.Fatalf("today total = %s, want 2h", today.Total)
	}
	if today.Entries[0].ID != "t2" {
		t.Fatalf("expected newest entry first, got %s", today.Entries[0].ID)
	}

	yesterday := groups[1]
	if yesterday.Label != "Yesterday" || yesterday.Total != 7*time.Second {
		t.Fatalf("unexpected yesterday group: %+v", yesterday)
	}

	if groups[2].Label != "Monday, Mar 3" {
		t.Fatalf("unexpected label %q", groups[2].Label)
	}

	limited := report.HistoryWith(entries, now, report.HistoryOptions{Limit: 2})
	if len(limited) != 2 || limited[1].Label != "Yesterday" {
		t.Fatalf("unexpected limited history: %+v", limited)
	}
}

func TestFormatHelpers(t *testing.T) {
	cases := []struct {
		d     time.Duration
		clock string
		short string
	}{
		{0, "00:00", "0m"},
		{90 * time.Second, "01:30", "1m"},
		{125 * time.Second, "02:05", "2m"},
		{time.Hour + 5*time.Minute + 9*time.Second, "1:05:09", "1h 05m"},
		{-time.Second, "00:00", "0m"},
	}
	for _, tc := range cases {
		if got := report.FormatClock(tc.d); got != tc.clock {
			t.Fatalf("FormatClock(%s) = %q, want %q", tc.d, got, tc.clock)
		}
		if got := report.FormatShort(tc.d); got != tc.short {
			t.Fatalf("FormatShort(%s) = %q, want %q", tc.d, got, tc.short)
		}
	}
	if got := report.FormatPercent(33.4); got != "33%" {
		t.Fatalf("FormatPercent = %q", got)
	}
}
