package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ttm/internal/config"
	"ttm/internal/logging"
)

func writeRunLog(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestLogRetentionPrunesExpiredRunLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	expired := cfg.RunLogPath("old")
	recent := cfg.RunLogPath("recent")
	current := cfg.RunLogPath("current")
	unrelated := filepath.Join(cfg.LogDir(), "notes.txt")
	writeRunLog(t, expired, now.AddDate(0, 0, -10))
	writeRunLog(t, recent, now.AddDate(0, 0, -2))
	writeRunLog(t, current, now.AddDate(0, 0, -30))
	writeRunLog(t, unrelated, now.AddDate(0, 0, -30))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	pruned := logging.LogRetention{
		Dir:     cfg.LogDir(),
		Pattern: cfg.RunLogPattern(),
		Days:    7,
		Keep:    []string{current},
		Now:     func() time.Time { return now },
	}.Prune(logger)

	if pruned != 1 {
		t.Fatalf("expected 1 pruned log, got %d", pruned)
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", expired, err)
	}
	for _, path := range []string{recent, current, unrelated} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if !strings.Contains(buf.String(), "count=1") {
		t.Fatalf("expected summary record, got %q", buf.String())
	}
}

func TestLogRetentionZeroDaysKeepsEverything(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	path := cfg.RunLogPath("ancient")
	writeRunLog(t, path, time.Now().AddDate(-1, 0, 0))

	pruned := logging.LogRetention{Dir: cfg.LogDir(), Pattern: cfg.RunLogPattern()}.Prune(nil)
	if pruned != 0 {
		t.Fatalf("expected nothing pruned, got %d", pruned)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log kept: %v", err)
	}
}
