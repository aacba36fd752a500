package testsupport

import (
	"path/filepath"
	"testing"

	"ttm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a unique temp directory per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Logging.RetentionDays = 0

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithAPIToken requires a bearer token on the test API.
func WithAPIToken(token string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.APIToken = token
	}
}

// WithStopOnExit toggles tracker.stop_on_exit.
func WithStopOnExit(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tracker.StopOnExit = enabled
	}
}

// WithCloseConflicts toggles tracker.close_conflicting_entries.
func WithCloseConflicts(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tracker.CloseConflictingEntries = enabled
	}
}
