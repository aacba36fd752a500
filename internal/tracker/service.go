package tracker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ttm/internal/config"
	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/notifications"
	"ttm/internal/status"
	"ttm/internal/timer"
)

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used by the registry and reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service exposes tracker operations over a ledger store.
type Service struct {
	cfg       *config.Config
	store     *ledger.Store
	registry  *timer.Registry
	publisher *status.Publisher
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time

	// mu serializes operations that combine registry and storage changes.
	mu sync.Mutex
	// driven is set while Run keeps the publisher current.
	driven atomic.Bool
}

// New builds a Service. The registry starts empty; call Restore before use.
func New(cfg *config.Config, store *ledger.Store, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(cfg)
	}
	base := s.logger
	s.logger = logging.NewComponentLogger(base, "tracker")

	tick := timer.DefaultTickInterval
	if cfg != nil {
		tick = cfg.TickInterval()
	}
	s.registry = timer.NewRegistry(store,
		timer.WithClock(s.now),
		timer.WithTickInterval(tick),
		timer.WithLogger(base),
	)
	s.publisher = status.NewPublisher(store, s.now, base)
	return s
}

// Registry exposes the underlying timer registry.
func (s *Service) Registry() *timer.Registry {
	return s.registry
}

// Publisher exposes the status publisher.
func (s *Service) Publisher() *status.Publisher {
	return s.publisher
}

// Store exposes the ledger store.
func (s *Service) Store() *ledger.Store {
	return s.store
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Run drives the status publisher from registry events until ctx ends or
// the registry closes.
func (s *Service) Run(ctx context.Context) {
	events, cancel := s.registry.Subscribe(64)
	defer cancel()
	s.driven.Store(true)
	defer s.driven.Store(false)
	s.publisher.Run(ctx, events)
}

// Close stops the ticker and releases subscribers. Running entries stay open
// in storage and are picked up by the next Restore.
func (s *Service) Close() {
	s.registry.Close()
}

// Restore rebuilds the registry from open entries in storage. When
// tracker.close_conflicting_entries is set, extra open entries for the same
// project are closed; otherwise they are only reported. Extras that cannot be
// closed stay in the report and never fail the restore. Only a failure to
// read storage is returned as an error.
func (s *Service) Restore(ctx context.Context) (timer.RestoreReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.store.ProjectsWithEntries(ctx, true)
	if err != nil {
		return timer.RestoreReport{}, err
	}
	report := s.registry.Restore(projects)

	if len(report.Conflicts) > 0 {
		names := make(map[string]string, len(projects))
		for _, project := range projects {
			names[project.ID] = project.Name
		}
		for _, conflict := range report.Conflicts {
			s.notify(ctx, notifications.EventRestoreConflict, notifications.Payload{
				"project": names[conflict.ProjectID],
				"extra":   len(conflict.Extra),
			})
		}
	}

	if s.cfg != nil && s.cfg.Tracker.CloseConflictingEntries && len(report.Conflicts) > 0 {
		closed, err := s.registry.CloseConflicts(ctx, report)
		report.Conflicts = remainingConflicts(report.Conflicts, closed)
		if err != nil {
			logging.WarnWithContext(s.logger, "closing conflicting entries failed", "restore_conflict_close_failed",
				logging.Alert("restore_conflict"),
				logging.Error(err),
				logging.Int("closed", len(closed)),
				logging.Int("still_open", len(report.Conflicts)),
				logging.String(logging.FieldImpact, "extra entries stay open in storage; timers were restored"),
				logging.String(logging.FieldErrorHint, "check database permissions; the next start retries"),
			)
		}
	}
	s.stopArchived(ctx, projects)
	s.refresh(ctx)
	return report, nil
}

// stopArchived closes restored timers of archived projects at the current
// time. Archived projects never run, so such entries are leftovers from a
// crash between archiving and stopping.
func (s *Service) stopArchived(ctx context.Context, projects []ledger.Project) {
	for _, project := range projects {
		if !project.Archived || !s.registry.IsRunning(project.ID) {
			continue
		}
		if _, err := s.registry.Stop(ctx, project.ID); err != nil {
			logging.WarnWithContext(s.logger, "stopping archived project timer failed", "archived_timer_stop_failed",
				logging.String(logging.FieldProjectID, project.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "the archived project keeps counting until it is stopped"),
			)
			continue
		}
		s.logger.Info("archived project timer stopped on restore",
			logging.String(logging.FieldProjectID, project.ID),
			logging.String(logging.FieldProjectName, project.Name),
		)
	}
}

// remainingConflicts drops the extras that were closed and any conflict left
// without extras.
func remainingConflicts(conflicts []timer.Conflict, closed []ledger.TimeEntry) []timer.Conflict {
	done := make(map[string]struct{}, len(closed))
	for _, entry := range closed {
		done[entry.ID] = struct{}{}
	}
	var out []timer.Conflict
	for _, conflict := range conflicts {
		var extra []ledger.TimeEntry
		for _, entry := range conflict.Extra {
			if _, ok := done[entry.ID]; !ok {
				extra = append(extra, entry)
			}
		}
		if len(extra) > 0 {
			conflict.Extra = extra
			out = append(out, conflict)
		}
	}
	return out
}

func (s *Service) refresh(ctx context.Context) {
	if _, err := s.publisher.Refresh(ctx); err != nil {
		logging.WarnWithContext(s.logger, "status refresh failed", "status_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status totals may be stale until the next change"),
		)
	}
}

func (s *Service) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "tracking continues without the notification"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
