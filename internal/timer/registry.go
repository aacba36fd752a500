package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/services"
)

// EntryWriter persists time entries. *ledger.Store satisfies it.
type EntryWriter interface {
	InsertEntry(ctx context.Context, entry ledger.TimeEntry) error
	UpdateEntry(ctx context.Context, entry ledger.TimeEntry) error
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTickInterval overrides the ticker cadence.
func WithTickInterval(interval time.Duration) Option {
	return func(r *Registry) {
		r.tickInterval = interval
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry is the in-memory set of running entries, at most one per project.
type Registry struct {
	writer       EntryWriter
	now          func() time.Time
	tickInterval time.Duration
	logger       *slog.Logger
	ticker       *Ticker

	mu       sync.Mutex
	active   map[string]ledger.TimeEntry
	revision uint64
	subs     map[int]*subscriber
	nextSub  int
	closed   bool
}

// NewRegistry builds an empty registry that persists through writer.
func NewRegistry(writer EntryWriter, opts ...Option) *Registry {
	r := &Registry{
		writer:       writer,
		now:          time.Now,
		tickInterval: DefaultTickInterval,
		active:       make(map[string]ledger.TimeEntry),
		subs:         make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "timer")
	r.ticker = NewTicker(r.tickInterval, r.handleTick)
	return r
}

// Start begins a new entry for projectID. It is a no-op when the project is
// already running. The registry changes only after the entry is persisted.
func (r *Registry) Start(ctx context.Context, projectID string) (Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx, projectID)
}

// Stop ends the running entry for projectID. It is a no-op when nothing runs.
// On persistence failure the entry stays registered and running.
func (r *Registry) Stop(ctx context.Context, projectID string) (Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(ctx, projectID)
}

// Toggle stops projectID if it is running and starts it otherwise, under a
// single lock hold.
func (r *Registry) Toggle(ctx context.Context, projectID string) (Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[projectID]; ok {
		return r.stopLocked(ctx, projectID)
	}
	return r.startLocked(ctx, projectID)
}

func (r *Registry) startLocked(ctx context.Context, projectID string) (Transition, error) {
	if projectID == "" {
		return Transition{}, services.Wrap(services.ErrValidation, "timer", "start", "project id is required", nil)
	}
	if r.closed {
		return Transition{}, services.Wrap(services.ErrUnavailable, "timer", "start", "registry closed", nil)
	}
	if entry, ok := r.active[projectID]; ok {
		return Transition{ProjectID: projectID, Running: true, Entry: entry}, nil
	}

	entry := ledger.NewEntry(projectID, r.now())
	if err := r.writer.InsertEntry(ctx, entry); err != nil {
		return Transition{ProjectID: projectID}, persistenceFailure("start", projectID, err)
	}

	r.active[projectID] = entry
	r.revision++
	if len(r.active) == 1 {
		r.ticker.Start()
	}
	r.publishLocked(Event{Kind: EventStarted, ProjectID: projectID, Entry: entry, At: entry.StartTime})
	r.logger.Info("timer started",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldEntryID, entry.ID),
		logging.Time("start", entry.StartTime),
		logging.Int("active", len(r.active)),
	)
	return Transition{ProjectID: projectID, Changed: true, Running: true, Entry: entry}, nil
}

func (r *Registry) stopLocked(ctx context.Context, projectID string) (Transition, error) {
	entry, ok := r.active[projectID]
	if !ok {
		return Transition{ProjectID: projectID}, nil
	}

	closed := entry.Closed(r.now())
	if err := r.writer.UpdateEntry(ctx, closed); err != nil {
		return Transition{ProjectID: projectID, Running: true, Entry: entry}, persistenceFailure("stop", projectID, err)
	}

	r.removeLocked(projectID)
	r.publishLocked(Event{Kind: EventStopped, ProjectID: projectID, Entry: closed, At: *closed.EndTime})
	r.logger.Info("timer stopped",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldEntryID, closed.ID),
		logging.Duration("elapsed", closed.Duration(*closed.EndTime)),
		logging.Int("active", len(r.active)),
	)
	return Transition{ProjectID: projectID, Changed: true, Running: false, Entry: closed}, nil
}

func (r *Registry) removeLocked(projectID string) {
	delete(r.active, projectID)
	r.revision++
	if len(r.active) == 0 {
		r.ticker.Stop()
	}
}

// StopAll stops every running entry with one shared end time. Entries whose
// persistence fails stay running; their errors are joined into the result.
func (r *Registry) StopAll(ctx context.Context) ([]ledger.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.now()
	var (
		stopped []ledger.TimeEntry
		errs    []error
	)
	for _, entry := range r.activeLocked() {
		closed := entry.Closed(end)
		if err := r.writer.UpdateEntry(ctx, closed); err != nil {
			errs = append(errs, persistenceFailure("stop", entry.ProjectID, err))
			continue
		}
		r.removeLocked(entry.ProjectID)
		r.publishLocked(Event{Kind: EventStopped, ProjectID: entry.ProjectID, Entry: closed, At: end})
		stopped = append(stopped, closed)
	}
	if len(stopped) > 0 {
		r.logger.Info("all timers stopped",
			logging.Int("stopped", len(stopped)),
			logging.Int("failed", len(errs)),
		)
	}
	return stopped, errors.Join(errs...)
}

// IsRunning reports whether projectID has a running entry.
func (r *Registry) IsRunning(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[projectID]
	return ok
}

// Elapsed returns how long projectID's running entry has run, or 0.
func (r *Registry) Elapsed(projectID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.active[projectID]
	if !ok {
		return 0
	}
	return entry.Duration(r.now())
}

// RunningEntry returns the running entry for projectID.
func (r *Registry) RunningEntry(projectID string) (ledger.TimeEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.active[projectID]
	return entry, ok
}

// Active returns the running entries ordered by start time.
func (r *Registry) Active() []ledger.TimeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

func (r *Registry) activeLocked() []ledger.TimeEntry {
	entries := make([]ledger.TimeEntry, 0, len(r.active))
	for _, entry := range r.active {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].StartTime.Before(entries[j].StartTime)
	})
	return entries
}

// ActiveCount returns the number of running entries.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Revision increases on every mutation and every tick.
func (r *Registry) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// Ticking reports whether the live-duration ticker is running.
func (r *Registry) Ticking() bool {
	return r.ticker.Running()
}

// TickCount returns how many ticks have fired.
func (r *Registry) TickCount() uint64 {
	return r.ticker.Count()
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time {
	return r.now()
}

// Close stops the ticker and closes every subscriber channel. Running entries
// stay open in storage and are picked up again by Restore.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.ticker.Stop()
	for id, sub := range r.subs {
		close(sub.ch)
		delete(r.subs, id)
	}
}

func (r *Registry) handleTick(uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.active) == 0 {
		return
	}
	r.revision++
	r.publishLocked(Event{Kind: EventTick})
}

func persistenceFailure(operation, projectID string, err error) error {
	if errors.Is(err, ledger.ErrPersistence) {
		return fmt.Errorf("%s timer for project %s: %w", operation, projectID, err)
	}
	return services.Wrap(ledger.ErrPersistence, "timer", operation, "project "+projectID, err)
}
