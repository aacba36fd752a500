package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ttm/internal/api"
	"ttm/internal/status"
	"ttm/internal/timer"
	"ttm/internal/tracker"
)

func TestProjectCommandsLocal(t *testing.T) {
	env := setupLocalEnv(t)

	out := mustRunCLI(t, env.configPath, "project", "add", "Alpha")
	requireContains(t, out, "Created")
	requireContains(t, out, "Alpha")
	mustRunCLI(t, env.configPath, "project", "add", "Beta", "--color", "#112233")

	if _, _, err := runCLI(t, env.configPath, "project", "add", "alpha"); err == nil {
		t.Fatal("expected duplicate name to fail")
	}

	out = mustRunCLI(t, env.configPath, "--json", "project", "list")
	var listed api.ProjectListResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode project list: %v\n%s", err, out)
	}
	if len(listed.Projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(listed.Projects))
	}
	slots := map[int]bool{}
	for _, p := range listed.Projects {
		slots[p.Slot] = true
		if p.Name == "Beta" && p.ColorTag != "#112233" {
			t.Fatalf("expected Beta color #112233, got %q", p.ColorTag)
		}
	}
	if !slots[1] || !slots[2] {
		t.Fatalf("expected slots 1 and 2, got %v", slots)
	}

	mustRunCLI(t, env.configPath, "project", "rename", "Beta", "Gamma")
	out = mustRunCLI(t, env.configPath, "project", "archive", "gamma")
	requireContains(t, out, "Archived Gamma")

	out = mustRunCLI(t, env.configPath, "project", "list")
	if strings.Contains(out, "Gamma") {
		t.Fatalf("archived project listed without --all: %q", out)
	}
	out = mustRunCLI(t, env.configPath, "project", "list", "--all")
	requireContains(t, out, "Gamma")
	requireContains(t, out, "archived")

	if _, _, err := runCLI(t, env.configPath, "start", "Gamma"); err == nil {
		t.Fatal("expected starting an archived project to fail")
	}

	out = mustRunCLI(t, env.configPath, "project", "delete", "Gamma")
	requireContains(t, out, "Deleted Gamma")
	if _, _, err := runCLI(t, env.configPath, "project", "delete", "Gamma"); err == nil {
		t.Fatal("expected deleting a missing project to fail")
	}
}

func TestTimerCommandsLocal(t *testing.T) {
	env := setupLocalEnv(t)
	mustRunCLI(t, env.configPath, "project", "add", "Alpha")

	requireContains(t, mustRunCLI(t, env.configPath, "start", "Alpha"), "Started Alpha")
	requireContains(t, mustRunCLI(t, env.configPath, "start", "alpha"), "already running")

	out := mustRunCLI(t, env.configPath, "--json", "status")
	var snap status.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if snap.ActiveCount != 1 {
		t.Fatalf("expected the timer to survive between invocations, active=%d", snap.ActiveCount)
	}

	requireContains(t, mustRunCLI(t, env.configPath, "status"), "Alpha")
	requireContains(t, mustRunCLI(t, env.configPath, "stop", "Alpha"), "Stopped Alpha after")
	requireContains(t, mustRunCLI(t, env.configPath, "stop", "Alpha"), "not running")

	out = mustRunCLI(t, env.configPath, "--json", "toggle", "Alpha")
	var tr timer.Transition
	if err := json.Unmarshal([]byte(out), &tr); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if !tr.Changed || !tr.Running {
		t.Fatalf("expected toggle to start, got %+v", tr)
	}
	requireContains(t, mustRunCLI(t, env.configPath, "stop-all"), "Stopped 1 timer(s)")
}

func TestSlotCommandLocal(t *testing.T) {
	env := setupLocalEnv(t)
	mustRunCLI(t, env.configPath, "project", "add", "Alpha")

	requireContains(t, mustRunCLI(t, env.configPath, "slot", "1"), "Started slot 1")
	requireContains(t, mustRunCLI(t, env.configPath, "slot", "1"), "Stopped slot 1")
	requireContains(t, mustRunCLI(t, env.configPath, "slot", "5"), "No project in slot 5")
	if _, _, err := runCLI(t, env.configPath, "slot", "0"); err == nil {
		t.Fatal("expected slot 0 to be rejected")
	}
}

func TestReportCommandsLocal(t *testing.T) {
	env := setupLocalEnv(t)
	mustRunCLI(t, env.configPath, "project", "add", "Alpha")
	mustRunCLI(t, env.configPath, "start", "Alpha")
	mustRunCLI(t, env.configPath, "stop", "Alpha")

	out := mustRunCLI(t, env.configPath, "export", "--format", "csv")
	requireContains(t, out, "date,project,duration_minutes,start_time,end_time")
	requireContains(t, out, "Alpha")

	target := filepath.Join(t.TempDir(), "out", "export.json")
	_, stderr, err := runCLI(t, env.configPath, "export", "-f", "json", "-o", target)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	requireContains(t, stderr, target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), `"exported_at"`)

	if _, _, err := runCLI(t, env.configPath, "export", "--format", "xml"); err == nil {
		t.Fatal("expected unsupported format to fail")
	}

	out = mustRunCLI(t, env.configPath, "--json", "today")
	var today tracker.TodaySummary
	if err := json.Unmarshal([]byte(out), &today); err != nil {
		t.Fatalf("decode today: %v", err)
	}
	if today.Date == "" {
		t.Fatal("expected today's date key")
	}

	out = mustRunCLI(t, env.configPath, "--json", "history", "--days", "1")
	var history tracker.HistoryResult
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Days) != 1 || len(history.Days[0].Entries) != 1 {
		t.Fatalf("expected one day with one entry, got %+v", history.Days)
	}
	requireContains(t, mustRunCLI(t, env.configPath, "history"), "Alpha")

	if _, _, err := runCLI(t, env.configPath, "history", "--days=-1"); err == nil {
		t.Fatal("expected negative days to be rejected")
	}
}

func TestResetCommandRequiresConfirmation(t *testing.T) {
	env := setupLocalEnv(t)
	mustRunCLI(t, env.configPath, "project", "add", "Alpha")
	mustRunCLI(t, env.configPath, "start", "Alpha")

	if _, _, err := runCLI(t, env.configPath, "reset"); err == nil {
		t.Fatal("expected reset without --yes to fail")
	}
	requireContains(t, mustRunCLI(t, env.configPath, "reset", "--yes"), "All projects and entries removed")
	requireContains(t, mustRunCLI(t, env.configPath, "project", "list", "--all"), "No projects")
}

func TestCommandsUseRunningDaemon(t *testing.T) {
	env := setupDaemonEnv(t)

	mustRunCLI(t, env.configPath, "project", "add", "Remote")
	requireContains(t, mustRunCLI(t, env.configPath, "start", "Remote"), "Started Remote")

	running, err := env.daemon.Backend().Running(t.Context())
	if err != nil {
		t.Fatalf("daemon Running: %v", err)
	}
	if len(running) != 1 {
		t.Fatalf("expected the daemon to own the running timer, got %d", len(running))
	}

	var st api.DaemonStatus
	waitFor(t, 5*time.Second, func() bool {
		out := mustRunCLI(t, env.configPath, "--json", "daemon", "status")
		if err := json.Unmarshal([]byte(out), &st); err != nil {
			t.Fatalf("decode daemon status: %v\n%s", err, out)
		}
		return st.Running && st.Status.ActiveCount == 1
	})
	requireContains(t, mustRunCLI(t, env.configPath, "stop-all"), "Stopped 1 timer(s)")
}

func TestCommandsFailWhenDaemonLockHeldButAPIDisabled(t *testing.T) {
	env := setupDaemonEnv(t)
	cfg := *env.cfg
	cfg.Paths.APIBind = ""
	configPath := writeTestConfig(t, &cfg)

	_, _, err := runCLI(t, configPath, "project", "list")
	if err == nil {
		t.Fatal("expected local fallback to refuse while the daemon holds the lock")
	}
	requireContains(t, err.Error(), "holds the lock")
}

func TestConfigCommands(t *testing.T) {
	env := setupLocalEnv(t)

	out := mustRunCLI(t, env.configPath, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Daemon API: disabled")

	out = mustRunCLI(t, env.configPath, "config", "show")
	requireContains(t, out, "[tracker]")
	requireContains(t, out, env.cfg.Paths.DataDir)

	target := filepath.Join(t.TempDir(), "cfg", "config.toml")
	requireContains(t, mustRunCLI(t, "", "config", "init", "--path", target), target)
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse to overwrite")
	}
	mustRunCLI(t, "", "config", "init", "--path", target, "--overwrite")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[tracker]\ntick_interval_ms = 1\n"), 0o644); err != nil {
		t.Fatalf("write bad config: %v", err)
	}
	if _, _, err := runCLI(t, bad, "config", "validate"); err == nil {
		t.Fatal("expected invalid config to fail validation")
	}
}

func TestNotifyTestRequiresTopic(t *testing.T) {
	env := setupLocalEnv(t)
	_, _, err := runCLI(t, env.configPath, "notify", "test")
	if err == nil {
		t.Fatal("expected notify test to fail without a topic")
	}
	requireContains(t, err.Error(), "ntfy_topic")
}

func TestDaemonLogsPrintsCurrentLog(t *testing.T) {
	env := setupLocalEnv(t)
	requireContains(t, mustRunCLI(t, env.configPath, "daemon", "logs"), "No daemon log")

	logPath := filepath.Join(env.cfg.LogDir(), "ttm.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out := mustRunCLI(t, env.configPath, "daemon", "logs", "-n", "2")
	if out != "second\nthird\n" {
		t.Fatalf("unexpected log tail %q", out)
	}
}
