package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"ttm/internal/api"
	"ttm/internal/config"
	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/services"
	"ttm/internal/status"
	"ttm/internal/tracker"
)

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = fmt.Errorf("%w: another ttm process holds the lock", services.ErrConflict)

// Daemon owns the tracker service for the lifetime of the process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *tracker.Service
	local  *api.Local

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	runDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	APIAddress   string
	Snapshot     status.Snapshot
}

// New constructs a daemon around svc.
func New(cfg *config.Config, svc *tracker.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and tracker service")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		svc:      svc,
		local:    api.NewLocal(svc),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, restores running timers and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped.Load() {
		return errors.New("daemon was stopped and cannot be restarted")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	report, err := d.svc.Restore(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("restore timers: %w", err)
	}
	if conflicts := report.Err(); conflicts != nil {
		logging.WarnWithContext(d.logger, "running timers restored with conflicts", "restore_conflict",
			logging.Error(conflicts),
			logging.String(logging.FieldImpact, "extra open entries remain in storage"),
			logging.String(logging.FieldErrorHint, "enable tracker.close_conflicting_entries to close them on start"),
		)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.runDone = make(chan struct{})
	go func() {
		defer close(d.runDone)
		d.svc.Run(runCtx)
	}()

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = srv.start(runCtx)
	}
	if err != nil {
		cancel()
		<-d.runDone
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	d.api = srv

	d.running.Store(true)
	d.logger.Info("ttm daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("restored", len(report.Restored)),
		logging.String("api", d.APIAddress()),
	)
	return nil
}

// Stop shuts the API down, optionally stops every running timer, closes the
// registry and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cfg.Tracker.StopOnExit {
		stopped, err := d.svc.StopAll(context.Background())
		if err != nil {
			logging.ErrorWithContext(d.logger, "failed to stop timers on exit", "stop_on_exit_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "running entries stay open and are restored on next start"),
			)
		}
		d.logger.Info("timers stopped on exit", logging.Int("stopped", len(stopped)))
	}
	d.svc.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.runDone != nil {
		<-d.runDone
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next start may report the daemon as running"),
		)
	}
	d.running.Store(false)
	d.stopped.Store(true)
	d.logger.Info("ttm daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if store := d.svc.Store(); store != nil {
		return store.Close()
	}
	return nil
}

// Backend returns the in-process backend the API serves.
func (d *Daemon) Backend() api.Backend {
	return d.local
}

// APIAddress returns the address the API listens on, or "" when disabled.
func (d *Daemon) APIAddress() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (ledger.DatabaseHealth, error) {
	return d.svc.Store().CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	snap, err := d.svc.Status(ctx)
	if err != nil {
		logging.WarnWithContext(d.logger, "status snapshot failed", "status_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status reports the last known snapshot"),
		)
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
		Snapshot:     snap,
	}
}
