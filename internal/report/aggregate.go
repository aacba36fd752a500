package report

import (
	"sort"
	"time"

	"ttm/internal/ledger"
)

// Share is one project's slice of a day's tracked time.
type Share struct {
	ProjectID string        `json:"project_id"`
	Name      string        `json:"name"`
	ColorTag  string        `json:"color_tag"`
	Duration  time.Duration `json:"duration"`
	Percent   float64       `json:"percent"`
}

// ProjectToday is the project's tracked time for now's calendar day.
func ProjectToday(project ledger.Project, now time.Time) time.Duration {
	return project.TodayDuration(now)
}

// TodayTotal sums ProjectToday over projects.
func TodayTotal(projects []ledger.Project, now time.Time) time.Duration {
	var total time.Duration
	for _, project := range projects {
		total += ProjectToday(project, now)
	}
	return total
}

// ActiveCount counts running entries across projects.
func ActiveCount(projects []ledger.Project) int {
	n := 0
	for _, project := range projects {
		n += len(project.RunningEntries())
	}
	return n
}

// Breakdown returns per-project time for day's calendar day, largest first.
// Projects with no time that day are omitted. Percent is 0 when the total is 0.
func Breakdown(projects []ledger.Project, day, now time.Time) []Share {
	shares := make([]Share, 0, len(projects))
	var total time.Duration
	for _, project := range projects {
		d := project.DurationOn(day, now)
		if d <= 0 {
			continue
		}
		total += d
		shares = append(shares, Share{
			ProjectID: project.ID,
			Name:      project.Name,
			ColorTag:  project.ColorTag,
			Duration:  d,
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Duration == shares[j].Duration {
			return shares[i].Name < shares[j].Name
		}
		return shares[i].Duration > shares[j].Duration
	})
	for i := range shares {
		shares[i].Percent = percent(shares[i].Duration, total)
	}
	return shares
}

func percent(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(part) / float64(total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
