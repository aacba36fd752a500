package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ttm/internal/api"
	"ttm/internal/testsupport"
	"ttm/internal/tracker"
)

func newWatchFixture(t *testing.T) (watchModel, *tracker.Service) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewClock(time.Date(2026, 4, 2, 9, 0, 0, 0, time.Local))
	svc := tracker.New(cfg, store, tracker.WithClock(clock.Now))
	t.Cleanup(svc.Close)
	if _, err := svc.AddProject(context.Background(), "Alpha", ""); err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	return newWatchModel(context.Background(), api.NewLocal(svc), time.Second), svc
}

func keyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// apply runs a command synchronously and feeds its message back in.
func apply(t *testing.T, m watchModel, cmd tea.Cmd) watchModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(watchModel)
}

func TestWatchModelTogglesSlots(t *testing.T) {
	m, svc := newWatchFixture(t)
	m = apply(t, m, m.refresh())
	if !m.loaded || len(m.snap.Projects) != 1 {
		t.Fatalf("expected one project after refresh, got %+v", m.snap)
	}

	_, cmd := m.Update(keyPress("1"))
	m = apply(t, m, cmd)
	if m.message != "started Alpha" {
		t.Fatalf("unexpected message %q", m.message)
	}
	if len(svc.Running()) != 1 {
		t.Fatal("expected slot 1 to start Alpha")
	}

	_, cmd = m.Update(keyPress("7"))
	m = apply(t, m, cmd)
	if m.message != "slot 7 is empty" {
		t.Fatalf("unexpected message %q", m.message)
	}

	_, cmd = m.Update(keyPress("s"))
	m = apply(t, m, cmd)
	if m.message != "stopped 1 timer(s)" {
		t.Fatalf("unexpected message %q", m.message)
	}
	if len(svc.Running()) != 0 {
		t.Fatal("expected stop-all to stop Alpha")
	}
}

func TestWatchModelQuitKeys(t *testing.T) {
	m, _ := newWatchFixture(t)
	for _, msg := range []tea.KeyMsg{keyPress("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("expected quit command for %q", msg.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg for %q", msg.String())
		}
	}
}

func TestWatchModelViewShowsProjects(t *testing.T) {
	m, _ := newWatchFixture(t)
	if !strings.Contains(m.View(), "loading") {
		t.Fatal("expected loading placeholder before first refresh")
	}
	m = apply(t, m, m.refresh())
	view := m.View()
	for _, want := range []string{"Alpha", "1-9 toggle", "running 0"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}
