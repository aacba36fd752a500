package tracker

import (
	"context"
	"io"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/report"
	"ttm/internal/status"
)

// TodaySummary is the daily breakdown for the current calendar day.
type TodaySummary struct {
	Date        string         `json:"date"`
	Total       time.Duration  `json:"total"`
	ActiveCount int            `json:"active_count"`
	Shares      []report.Share `json:"shares"`
}

// HistoryResult is the day-grouped entry history plus the project names the
// entries refer to.
type HistoryResult struct {
	Days  []report.DayGroup `json:"days"`
	Names map[string]string `json:"names"`
}

// Status returns the latest status snapshot. Without a Run loop keeping the
// publisher current, the snapshot is recomputed on every call.
func (s *Service) Status(ctx context.Context) (status.Snapshot, error) {
	snap := s.publisher.Current()
	if s.driven.Load() && snap.Revision > 0 {
		return snap, nil
	}
	return s.publisher.Refresh(ctx)
}

// Today summarizes today's time across non-archived projects.
func (s *Service) Today(ctx context.Context) (TodaySummary, error) {
	projects, err := s.store.ProjectsWithEntries(ctx, false)
	if err != nil {
		return TodaySummary{}, err
	}
	now := s.now()
	return TodaySummary{
		Date:        ledger.DateKey(now, now.Location()),
		Total:       report.TodayTotal(projects, now),
		ActiveCount: report.ActiveCount(projects),
		Shares:      report.Breakdown(projects, now, now),
	}, nil
}

// History groups entries by start day, newest first. days limits the result
// to that many most recent days with entries; 0 returns everything.
func (s *Service) History(ctx context.Context, days int) (HistoryResult, error) {
	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{})
	if err != nil {
		return HistoryResult{}, err
	}
	projects, err := s.store.ListProjects(ctx, true)
	if err != nil {
		return HistoryResult{}, err
	}
	names := make(map[string]string, len(projects))
	for _, project := range projects {
		names[project.ID] = project.Name
	}
	return HistoryResult{
		Days:  report.HistoryWith(entries, s.now(), report.HistoryOptions{Limit: days}),
		Names: names,
	}, nil
}

// Export writes every completed entry to w in format.
func (s *Service) Export(ctx context.Context, w io.Writer, format report.Format) error {
	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{CompletedOnly: true})
	if err != nil {
		return err
	}
	projects, err := s.store.ListProjects(ctx, true)
	if err != nil {
		return err
	}
	return report.Export(w, entries, projects, format, s.now())
}
