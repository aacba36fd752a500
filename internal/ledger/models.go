package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// UnknownProjectName labels entries whose project cannot be resolved.
const UnknownProjectName = "Unknown"

// DateKeyLayout formats the calendar-day grouping key.
const DateKeyLayout = "2006-01-02"

// Palette is the default set of color tags assigned to new projects in order.
var Palette = []string{"#007AFF", "#34C759", "#FF9500", "#FF3B30", "#5856D6", "#AF52DE"}

// Project is a named bucket of tracked time.
type Project struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	ColorTag  string      `json:"color_tag"`
	Archived  bool        `json:"archived"`
	CreatedAt time.Time   `json:"created_at"`
	Entries   []TimeEntry `json:"entries,omitempty"`
}

// TimeEntry is one span of tracked time. A nil EndTime means the entry is running.
type TimeEntry struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id,omitempty"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// NewEntry returns an open entry for projectID starting at start.
func NewEntry(projectID string, start time.Time) TimeEntry {
	return TimeEntry{ID: uuid.NewString(), ProjectID: projectID, StartTime: start}
}

// IsRunning reports whether the entry has no end time.
func (e TimeEntry) IsRunning() bool {
	return e.EndTime == nil
}

// Duration is (EndTime or now) minus StartTime, never negative.
func (e TimeEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	d := end.Sub(e.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Closed returns a copy ended at the given time, clamped so the end is never before the start.
func (e TimeEntry) Closed(at time.Time) TimeEntry {
	if at.Before(e.StartTime) {
		at = e.StartTime
	}
	e.EndTime = &at
	return e
}

// DateKeyIn returns the calendar day of StartTime in loc.
func (e TimeEntry) DateKeyIn(loc *time.Location) string {
	return DateKey(e.StartTime, loc)
}

// DateKey returns the calendar day of StartTime in the local zone.
func (e TimeEntry) DateKey() string {
	return DateKey(e.StartTime, time.Local)
}

// DateKey formats t as a calendar-day key in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateKeyLayout)
}

// TodayDuration sums entries that started on now's calendar day, in now's zone.
// Running entries count up to now.
func (p Project) TodayDuration(now time.Time) time.Duration {
	return p.DurationOn(now, now)
}

// DurationOn sums entries that started on day's calendar day in day's zone.
func (p Project) DurationOn(day, now time.Time) time.Duration {
	key := DateKey(day, day.Location())
	var total time.Duration
	for _, entry := range p.Entries {
		if entry.DateKeyIn(day.Location()) == key {
			total += entry.Duration(now)
		}
	}
	return total
}

// TotalDuration sums every entry.
func (p Project) TotalDuration(now time.Time) time.Duration {
	var total time.Duration
	for _, entry := range p.Entries {
		total += entry.Duration(now)
	}
	return total
}

// RunningEntries returns entries without an end time.
func (p Project) RunningEntries() []TimeEntry {
	var running []TimeEntry
	for _, entry := range p.Entries {
		if entry.IsRunning() {
			running = append(running, entry)
		}
	}
	return running
}

// NormalizeName trims and NFC-normalizes a project name.
func NormalizeName(name string) (string, error) {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	if normalized == "" {
		return "", ErrInvalidName
	}
	return normalized, nil
}

// FoldName returns the case-folded form used for name lookups.
func FoldName(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// NormalizeColor validates a #RRGGBB tag and upper-cases it. An empty tag
// selects the palette color at index.
func NormalizeColor(tag string, index int) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return PaletteColor(index), nil
	}
	if len(tag) != 7 || tag[0] != '#' {
		return "", ErrInvalidColor
	}
	for _, r := range tag[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", ErrInvalidColor
		}
	}
	return strings.ToUpper(tag), nil
}

// PaletteColor returns the palette entry for index, wrapping around.
func PaletteColor(index int) string {
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}

// NewProject builds a validated project. paletteIndex picks the default color
// when color is empty.
func NewProject(name, color string, paletteIndex int, now time.Time) (Project, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Project{}, err
	}
	tag, err := NormalizeColor(color, paletteIndex)
	if err != nil {
		return Project{}, err
	}
	return Project{
		ID:        uuid.NewString(),
		Name:      normalized,
		ColorTag:  tag,
		CreatedAt: now,
	}, nil
}
