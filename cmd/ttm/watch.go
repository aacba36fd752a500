package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/report"
	"ttm/internal/status"
)

var (
	watchTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	watchRunningStyle = lipgloss.NewStyle().Bold(true)
	watchIdleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A7A7A"))
	watchErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5484D"))
	watchHelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A7A7A")).Italic(true)
)

const maxWatchSlots = 9

type watchTickMsg time.Time

type watchSnapshotMsg struct {
	snap status.Snapshot
	err  error
}

type watchActionMsg struct {
	text string
	err  error
}

type watchModel struct {
	ctx      context.Context
	backend  api.Backend
	interval time.Duration

	snap    status.Snapshot
	loaded  bool
	err     error
	message string
}

func newWatchModel(ctx context.Context, backend api.Backend, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = time.Second
	}
	return watchModel{ctx: ctx, backend: backend, interval: interval}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.backend.Status(m.ctx)
		return watchSnapshotMsg{snap: snap, err: err}
	}
}

func (m watchModel) toggleSlot(slot int) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.backend.ToggleSlot(m.ctx, slot-1)
		if err != nil {
			return watchActionMsg{err: err}
		}
		name := m.slotName(slot)
		switch {
		case tr.ProjectID == "":
			return watchActionMsg{text: fmt.Sprintf("slot %d is empty", slot)}
		case tr.Running:
			return watchActionMsg{text: "started " + name}
		default:
			return watchActionMsg{text: "stopped " + name}
		}
	}
}

func (m watchModel) stopAll() tea.Cmd {
	return func() tea.Msg {
		closed, err := m.backend.StopAll(m.ctx)
		if err != nil {
			return watchActionMsg{err: err}
		}
		return watchActionMsg{text: fmt.Sprintf("stopped %d timer(s)", len(closed))}
	}
}

func (m watchModel) slotName(slot int) string {
	if slot >= 1 && slot <= len(m.snap.Projects) {
		return m.snap.Projects[slot-1].Name
	}
	return fmt.Sprintf("slot %d", slot)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m, m.stopAll()
		case "r":
			return m, m.refresh()
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			return m, m.toggleSlot(int(key[0] - '0'))
		}
		return m, nil
	case watchTickMsg:
		return m, tea.Batch(m.refresh(), m.tick())
	case watchSnapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snap = msg.snap
		m.loaded = true
		m.err = nil
		return m, nil
	case watchActionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.message = msg.text
		}
		return m, m.refresh()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("ttm") + "  ")
	fmt.Fprintf(&b, "today %s  running %d\n\n", report.FormatClock(m.snap.TodayTotal), m.snap.ActiveCount)

	switch {
	case !m.loaded:
		b.WriteString(watchIdleStyle.Render("loading...") + "\n")
	case len(m.snap.Projects) == 0:
		b.WriteString(watchIdleStyle.Render("no projects yet, add one with `ttm project add <name>`") + "\n")
	}

	for i, p := range m.snap.Projects {
		slot := " "
		if i < maxWatchSlots {
			slot = fmt.Sprintf("%d", i+1)
		}
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(p.ColorTag)).Render("●")
		line := fmt.Sprintf("%s %s %-24s %8s  today %s", slot, dot, p.Name, report.FormatClock(p.Elapsed), report.FormatShort(p.Today))
		if p.Running {
			b.WriteString(watchRunningStyle.Render(line) + "\n")
		} else {
			b.WriteString(watchIdleStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(watchErrorStyle.Render("error: "+m.err.Error()) + "\n")
	} else if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	b.WriteString(watchHelpStyle.Render("1-9 toggle  s stop all  r refresh  q quit"))
	return b.String()
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of timers with slot hotkeys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval := ctx.configValue().TickInterval()
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				program := tea.NewProgram(
					newWatchModel(c, backend, interval),
					tea.WithAltScreen(),
					tea.WithContext(c),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				_, err := program.Run()
				return err
			})
		},
	}
}
