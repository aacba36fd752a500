package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir" env:"TTM_DATA_DIR"`
	APIBind  string `toml:"api_bind" env:"TTM_API_BIND"`
	APIToken string `toml:"api_token" env:"TTM_API_TOKEN"`
}

// Tracker contains timer engine policy.
type Tracker struct {
	// TickIntervalMS is the cadence of the live-duration ticker while any timer runs.
	TickIntervalMS int `toml:"tick_interval_ms"`
	// StopOnExit stops every running timer when the daemon shuts down.
	StopOnExit bool `toml:"stop_on_exit"`
	// CloseConflictingEntries closes extra open entries found for a project on restore.
	CloseConflictingEntries bool `toml:"close_conflicting_entries"`
	// HistoryDays limits how many days the history view returns. 0 means all.
	HistoryDays int `toml:"history_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level" env:"TTM_LOG_LEVEL"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" env:"TTM_NTFY_TOPIC"`
	RequestTimeout int    `toml:"request_timeout"`
	TimerStarted   bool   `toml:"timer_started"`
	TimerStopped   bool   `toml:"timer_stopped"`
}

// Config encapsulates all configuration values for ttm.
//
// Configuration sections by subsystem:
//   - Paths: data directory (database, lock, logs) and API bind address
//   - Tracker: ticker cadence and shutdown/restore policy
//   - Logging: log format, level, and retention
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tracker       Tracker       `toml:"tracker"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("read environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ttm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon and CLI operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite ledger location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "ttm.db")
}

// LockPath returns the single-owner lock file shared by the daemon and local CLI mode.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "ttm.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "ttm.pid")
}

// LogDir returns the directory holding daemon logs.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.DataDir, "logs")
}

const (
	runLogPrefix   = "ttm-"
	runLogSuffix   = ".log"
	currentLogName = "ttm.log"
)

// RunLogPath returns the log file for one daemon run.
func (c *Config) RunLogPath(runID string) string {
	return filepath.Join(c.LogDir(), runLogPrefix+runID+runLogSuffix)
}

// RunLogPattern matches the names of every per-run log in LogDir.
func (c *Config) RunLogPattern() string {
	return runLogPrefix + "*" + runLogSuffix
}

// CurrentLogPath is the link that points at the newest run log.
func (c *Config) CurrentLogPath() string {
	return filepath.Join(c.LogDir(), currentLogName)
}

// TickInterval returns the ticker cadence as a duration.
func (c *Config) TickInterval() time.Duration {
	if c.Tracker.TickIntervalMS <= 0 {
		return time.Duration(defaultTickIntervalMS) * time.Millisecond
	}
	return time.Duration(c.Tracker.TickIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
