// Package status keeps a live summary of the tracker (running count, today's
// total, per-project figures) and fans it out to interested views.
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/report"
	"ttm/internal/timer"
)

// Loader supplies the projects a snapshot is computed from. *ledger.Store satisfies it.
type Loader interface {
	ProjectsWithEntries(ctx context.Context, includeArchived bool) ([]ledger.Project, error)
}

// ProjectStatus is one project's live figures.
type ProjectStatus struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ColorTag string        `json:"color_tag"`
	Running  bool          `json:"running"`
	Elapsed  time.Duration `json:"elapsed"`
	Today    time.Duration `json:"today"`
}

// Snapshot is the published summary. Revision increases with every recompute.
type Snapshot struct {
	ActiveCount int             `json:"active_count"`
	TodayTotal  time.Duration   `json:"today_total"`
	Revision    uint64          `json:"revision"`
	Tick        uint64          `json:"tick"`
	At          time.Time       `json:"at"`
	Projects    []ProjectStatus `json:"projects"`
}

// Publisher recomputes the snapshot after registry changes and on every tick.
type Publisher struct {
	loader Loader
	now    func() time.Time
	logger *slog.Logger

	// loadMu orders reloads so an older load never replaces a newer one.
	loadMu sync.Mutex

	mu       sync.Mutex
	projects []ledger.Project
	snap     Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
}

// NewPublisher builds a publisher. now defaults to time.Now.
func NewPublisher(loader Loader, now func() time.Time, logger *slog.Logger) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{
		loader: loader,
		now:    now,
		logger: logging.NewComponentLogger(logger, "status"),
		subs:   make(map[int]chan Snapshot),
	}
}

// Refresh reloads projects and recomputes the snapshot.
func (p *Publisher) Refresh(ctx context.Context) (Snapshot, error) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	projects, err := p.loader.ProjectsWithEntries(ctx, false)
	if err != nil {
		return p.Current(), err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.projects = projects
	return p.recomputeLocked(p.snap.Tick, p.now()), nil
}

// Advance recomputes from the cached projects so running totals grow between refreshes.
func (p *Publisher) Advance(tick uint64, now time.Time) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.IsZero() {
		now = p.now()
	}
	return p.recomputeLocked(tick, now)
}

// Current returns the latest snapshot.
func (p *Publisher) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Subscribe returns a channel of snapshots and a cancel func. Slow readers miss
// intermediate snapshots.
func (p *Publisher) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

// Run keeps the snapshot current from registry events until ctx ends or the
// event channel closes.
func (p *Publisher) Run(ctx context.Context, events <-chan timer.Event) {
	if _, err := p.Refresh(ctx); err != nil {
		logging.WarnWithContext(p.logger, "status refresh failed", "status_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status totals may be stale until the next change"),
		)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Kind == timer.EventTick {
				p.Advance(evt.Tick, evt.At)
				continue
			}
			if _, err := p.Refresh(ctx); err != nil {
				logging.WarnWithContext(p.logger, "status refresh failed", "status_refresh_failed",
					logging.Error(err),
					logging.String("event", string(evt.Kind)),
					logging.String(logging.FieldImpact, "status totals may be stale until the next change"),
				)
			}
		}
	}
}

func (p *Publisher) recomputeLocked(tick uint64, now time.Time) Snapshot {
	snap := Snapshot{
		Revision: p.snap.Revision + 1,
		Tick:     tick,
		At:       now,
		Projects: make([]ProjectStatus, 0, len(p.projects)),
	}
	for _, project := range p.projects {
		ps := ProjectStatus{
			ID:       project.ID,
			Name:     project.Name,
			ColorTag: project.ColorTag,
			Today:    report.ProjectToday(project, now),
		}
		if running := project.RunningEntries(); len(running) > 0 {
			ps.Running = true
			latest := running[0]
			for _, entry := range running[1:] {
				if entry.StartTime.After(latest.StartTime) {
					latest = entry
				}
			}
			ps.Elapsed = latest.Duration(now)
			snap.ActiveCount++
		}
		snap.TodayTotal += ps.Today
		snap.Projects = append(snap.Projects, ps)
	}
	p.snap = snap
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	return snap
}
