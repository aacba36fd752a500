package logging

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogRetention prunes per-run daemon logs in Dir whose names match Pattern.
// Days of 0 keeps everything. Paths listed in Keep are never removed.
type LogRetention struct {
	Dir     string
	Pattern string
	Days    int
	Keep    []string
	Now     func() time.Time
}

// Prune removes expired run logs and reports how many were deleted.
func (r LogRetention) Prune(logger *slog.Logger) int {
	dir := strings.TrimSpace(r.Dir)
	if r.Days <= 0 || dir == "" || r.Pattern == "" {
		return 0
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	cutoff := now().AddDate(0, 0, -r.Days)

	matches, err := filepath.Glob(filepath.Join(dir, r.Pattern))
	if err != nil {
		WarnWithContext(logger, "log retention pattern invalid", "log_retention_failed",
			String("pattern", r.Pattern),
			Error(err),
			String(FieldImpact, "old run logs are kept"),
		)
		return 0
	}

	keep := absSet(r.Keep)
	pruned := 0
	for _, path := range matches {
		if _, ok := keep[absPath(path)]; ok {
			continue
		}
		if !expired(path, cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the ttm data directory"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		pruned++
	}
	if pruned > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("count", pruned),
			Int("retention_days", r.Days),
			String(FieldEventType, "log_pruned"),
		)
	}
	return pruned
}

// expired reports whether path is a regular file last written before cutoff.
// The ttm.log link and anything unreadable are left alone.
func expired(path string, cutoff time.Time) bool {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeType != 0 {
		return false
	}
	return info.ModTime().Before(cutoff)
}

func absSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			set[absPath(p)] = struct{}{}
		}
	}
	return set
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
