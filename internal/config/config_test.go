package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ttm/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "ttm")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7491" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.TickInterval() != time.Second {
		t.Fatalf("expected 1s tick, got %s", cfg.TickInterval())
	}
	if cfg.Tracker.StopOnExit {
		t.Fatal("expected stop_on_exit disabled by default")
	}
	if cfg.Tracker.CloseConflictingEntries {
		t.Fatal("expected close_conflicting_entries disabled by default")
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "ttm.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LockPath() != filepath.Join(wantData, "ttm.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
data_dir = "~/timers"
api_bind = "127.0.0.1:9000"

[tracker]
tick_interval_ms = 250
stop_on_exit = true
close_conflicting_entries = true
history_days = 14

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "timers") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.TickInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected tick interval: %s", cfg.TickInterval())
	}
	if !cfg.Tracker.StopOnExit || !cfg.Tracker.CloseConflictingEntries {
		t.Fatalf("expected tracker flags to be set: %+v", cfg.Tracker)
	}
	if cfg.Tracker.HistoryDays != 14 {
		t.Fatalf("unexpected history days: %d", cfg.Tracker.HistoryDays)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := filepath.Join(t.TempDir(), "env-data")
	t.Setenv("TTM_DATA_DIR", dataDir)
	t.Setenv("TTM_API_TOKEN", "secret")
	t.Setenv("TTM_LOG_LEVEL", "warn")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("expected env data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected env token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"tick too small", func(c *config.Config) { c.Tracker.TickIntervalMS = 10 }, "tracker.tick_interval_ms"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad bind", func(c *config.Config) { c.Paths.APIBind = "localhost" }, "paths.api_bind"},
		{"bad topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
		{"no data dir", func(c *config.Config) { c.Paths.DataDir = "" }, "paths.data_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Tracker.TickIntervalMS != 1000 {
		t.Fatalf("unexpected sample tick interval: %d", decoded.Tracker.TickIntervalMS)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load sample: %v", err)
	}
}

func TestEnsureDirectoriesCreatesDataAndLogDirs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.LogDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestRunLogPathsShareLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()

	run := cfg.RunLogPath("20260520T120000.000Z")
	if filepath.Dir(run) != cfg.LogDir() {
		t.Fatalf("run log %q outside %q", run, cfg.LogDir())
	}
	matched, err := filepath.Match(cfg.RunLogPattern(), filepath.Base(run))
	if err != nil || !matched {
		t.Fatalf("pattern %q does not match %q (err=%v)", cfg.RunLogPattern(), run, err)
	}
	current := cfg.CurrentLogPath()
	if current != filepath.Join(cfg.LogDir(), "ttm.log") {
		t.Fatalf("unexpected current log path %q", current)
	}
	if matched, _ := filepath.Match(cfg.RunLogPattern(), filepath.Base(current)); matched {
		t.Fatal("current log link must not match the run log pattern")
	}
}
