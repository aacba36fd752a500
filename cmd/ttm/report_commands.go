package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/report"
	"ttm/internal/status"
	"ttm/internal/tracker"
)

func newReportCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStatusCommand(ctx),
		newTodayCommand(ctx),
		newHistoryCommand(ctx),
		newExportCommand(ctx),
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show running timers and today's total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				snap, err := backend.Status(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(snap, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}

func renderStatus(snap status.Snapshot, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Timers", colorize) {
		b.WriteString(line + "\n")
	}
	running := 0
	for _, p := range snap.Projects {
		if !p.Running {
			continue
		}
		running++
		b.WriteString(renderStatusLine(p.Name, statusOK, report.FormatClock(p.Elapsed)+" (today "+report.FormatShort(p.Today)+")", colorize) + "\n")
	}
	if running == 0 {
		b.WriteString(renderStatusLine("Running", statusInfo, "no timers running", colorize) + "\n")
	}
	b.WriteString(renderStatusLine("Active", statusInfo, fmt.Sprintf("%d", snap.ActiveCount), colorize) + "\n")
	b.WriteString(renderStatusLine("Today", statusInfo, report.FormatShort(snap.TodayTotal), colorize) + "\n")
	return b.String()
}

func newTodayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's breakdown by project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				summary, err := backend.Today(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderToday(summary, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
}

func renderToday(summary tracker.TodaySummary, colorize bool) string {
	if len(summary.Shares) == 0 {
		return fmt.Sprintf("Nothing tracked on %s\n", summary.Date)
	}
	rows := make([][]string, 0, len(summary.Shares))
	for _, share := range summary.Shares {
		rows = append(rows, []string{
			colorSwatch(share.ColorTag, colorize) + " " + share.Name,
			report.FormatShort(share.Duration),
			report.FormatPercent(share.Percent),
		})
	}
	footer := []string{
		fmt.Sprintf("%s (%d running)", summary.Date, summary.ActiveCount),
		report.FormatShort(summary.Total),
		"",
	}
	return renderTable(
		[]string{"Project", "Time", "Share"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
		footer,
	)
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show entries grouped by day, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = ctx.configValue().Tracker.HistoryDays
			}
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				result, err := backend.History(c, days)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderHistory(result, time.Now(), shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "Number of most recent days to show (default from tracker.history_days, 0 = all)")
	return cmd
}

func renderHistory(result tracker.HistoryResult, now time.Time, colorize bool) string {
	if len(result.Days) == 0 {
		return "No entries yet\n"
	}
	var b strings.Builder
	for i, day := range result.Days {
		if i > 0 {
			b.WriteString("\n")
		}
		title := fmt.Sprintf("%s  %s", day.Label, report.FormatShort(day.Total))
		for _, line := range renderSectionHeader(title, colorize) {
			b.WriteString(line + "\n")
		}
		for _, entry := range day.Entries {
			name := result.Names[entry.ProjectID]
			if name == "" {
				name = entry.ProjectID
			}
			end := "running"
			if entry.EndTime != nil {
				end = entry.EndTime.Local().Format("15:04")
			}
			fmt.Fprintf(&b, "%s%s-%-7s %8s  %s\n",
				statusIndent,
				entry.StartTime.Local().Format("15:04"),
				end,
				report.FormatClock(entry.Duration(now)),
				name,
			)
		}
	}
	return b.String()
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed entries as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				var buf bytes.Buffer
				if err := backend.Export(c, &buf, format); err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := io.Copy(cmd.OutOrStdout(), &buf)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return fmt.Errorf("create export directory: %w", err)
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "csv", "Export format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
