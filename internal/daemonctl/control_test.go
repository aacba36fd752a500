package daemonctl_test

import (
	"os"
	"strconv"
	"testing"

	"ttm/internal/daemonctl"
	"ttm/internal/testsupport"
)

func TestProcessInfoWithoutPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || running || pid != 0 {
		t.Fatalf("expected no daemon, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestProcessInfoDetectsLiveProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || !running || pid != os.Getpid() {
		t.Fatalf("expected current process, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.PIDPath(), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ReadPID(cfg.PIDPath()); err == nil {
		t.Fatal("expected malformed pid error")
	}
}

func TestProcessAliveRejectsNonPositive(t *testing.T) {
	if daemonctl.ProcessAlive(0) || daemonctl.ProcessAlive(-1) {
		t.Fatal("expected non-positive pids to be reported dead")
	}
}
