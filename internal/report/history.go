package report

import (
	"sort"
	"time"

	"ttm/internal/ledger"
)

// DayGroup is the set of entries that started on one calendar day.
type DayGroup struct {
	DateKey string             `json:"date_key"`
	Label   string             `json:"label"`
	Total   time.Duration      `json:"total"`
	Entries []ledger.TimeEntry `json:"entries"`
}

// HistoryOptions narrows History output.
type HistoryOptions struct {
	// Limit keeps only the most recent Limit days. 0 keeps everything.
	Limit int
}

// History groups entries by start day in now's location, newest day first.
func History(entries []ledger.TimeEntry, now time.Time) []DayGroup {
	return HistoryWith(entries, now, HistoryOptions{})
}

// HistoryWith is History with options.
func HistoryWith(entries []ledger.TimeEntry, now time.Time, opts HistoryOptions) []DayGroup {
	loc := now.Location()
	byDay := make(map[string]*DayGroup)
	for _, entry := range entries {
		key := entry.DateKeyIn(loc)
		group, ok := byDay[key]
		if !ok {
			group = &DayGroup{DateKey: key}
			byDay[key] = group
		}
		group.Entries = append(group.Entries, entry)
		group.Total += entry.Duration(now)
	}

	groups := make([]DayGroup, 0, len(byDay))
	for _, group := range byDay {
		sort.SliceStable(group.Entries, func(i, j int) bool {
			return group.Entries[i].StartTime.After(group.Entries[j].StartTime)
		})
		group.Label = DayLabel(group.DateKey, now)
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].DateKey > groups[j].DateKey })

	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}
	return groups
}

// DayLabel renders a date key relative to now: "Today", "Yesterday", or
// "Monday, Jan 2".
func DayLabel(dateKey string, now time.Time) string {
	loc := now.Location()
	switch dateKey {
	case ledger.DateKey(now, loc):
		return "Today"
	case ledger.DateKey(now.AddDate(0, 0, -1), loc):
		return "Yesterday"
	}
	day, err := time.ParseInLocation(ledger.DateKeyLayout, dateKey, loc)
	if err != nil {
		return dateKey
	}
	return day.Format("Monday, Jan 2")
}
