package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/daemonctl"
	"ttm/internal/daemonrun"
	"ttm/internal/logs"
	"ttm/internal/report"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopTimeout  = 10 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tracker daemon in the foreground",
		Long: "Run the tracker daemon in the foreground until interrupted.\n" +
			"Use `ttm daemon start` to launch it in the background.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	daemonCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	daemonCmd.Flags().BoolVar(&development, "dev", false, "Enable development logging")

	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonLogsCommand(ctx))
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("daemon start needs paths.api_bind; run `ttm daemon` in the foreground instead")
			}
			if err := client.Ping(cmd.Context()); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon already running at %s\n", cfg.Paths.APIBind)
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			configPath := ""
			if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
				configPath = ctx.configPath
			}
			if err := daemonctl.Launch(exe, daemonctl.LaunchOptions{ConfigPath: configPath}); err != nil {
				return err
			}
			if err := daemonctl.WaitForAPI(cmd.Context(), client, daemonStartTimeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon started at %s\n", cfg.Paths.APIBind)
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pid, err := daemonctl.Signal(cfg)
			if err != nil {
				return err
			}
			if pid == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err := daemonctl.WaitForShutdown(pid, daemonStopTimeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon %d stopped\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon process and API status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			running, pid, err := daemonctl.ProcessInfo(cfg)
			if err != nil {
				return err
			}

			var remote *api.DaemonStatus
			client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return err
			}
			if client != nil {
				pingCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
				st, err := client.DaemonStatus(pingCtx)
				cancel()
				if err == nil {
					remote = &st
				}
			}

			if ctx.jsonOutput() {
				payload := api.DaemonStatus{
					Running:      running,
					PID:          pid,
					DatabasePath: cfg.DatabasePath(),
					LockFilePath: cfg.LockPath(),
					APIBind:      cfg.Paths.APIBind,
				}
				if remote != nil {
					payload = *remote
				}
				return writeJSON(cmd, payload)
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			out := cmd.OutOrStdout()
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			switch {
			case running:
				fmt.Fprintln(out, renderStatusLine("Process", statusOK, fmt.Sprintf("pid %d", pid), colorize))
			case pid != 0:
				fmt.Fprintln(out, renderStatusLine("Process", statusWarn, fmt.Sprintf("stale pid file (pid %d)", pid), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Process", statusInfo, "not running", colorize))
			}
			switch {
			case cfg.Paths.APIBind == "":
				fmt.Fprintln(out, renderStatusLine("API", statusInfo, "disabled", colorize))
			case remote != nil:
				fmt.Fprintln(out, renderStatusLine("API", statusOK, cfg.Paths.APIBind, colorize))
				fmt.Fprintln(out, renderStatusLine("Running timers", statusInfo, fmt.Sprintf("%d", remote.Status.ActiveCount), colorize))
				fmt.Fprintln(out, renderStatusLine("Today", statusInfo, report.FormatShort(remote.Status.TodayTotal), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("API", statusWarn, "unreachable at "+cfg.Paths.APIBind, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Lock", statusInfo, cfg.LockPath(), colorize))
			return nil
		},
	}
}

func newDaemonLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the daemon's current log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.CurrentLogPath()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tail) == 0 && !follow {
				fmt.Fprintf(out, "No daemon log at %s\n", path)
				return nil
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
