package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/report"
	"ttm/internal/timer"
)

func newTimerCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newTransitionCommand(ctx, "start", "Start a project's timer", api.Backend.Start),
		newTransitionCommand(ctx, "stop", "Stop a project's timer", api.Backend.Stop),
		newTransitionCommand(ctx, "toggle", "Start or stop a project's timer", api.Backend.Toggle),
		newSlotCommand(ctx),
		newStopAllCommand(ctx),
	}
}

type transitionFunc func(api.Backend, context.Context, string) (timer.Transition, error)

func newTransitionCommand(ctx *commandContext, use, short string, op transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				tr, err := op(backend, c, args[0])
				if err != nil {
					return err
				}
				return ctx.printTransition(cmd, args[0], tr)
			})
		},
	}
}

func newSlotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "slot <n>",
		Short: "Toggle the n-th project shown by `ttm project list`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("slot must be a positive number, got %q", args[0])
			}
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				tr, err := backend.ToggleSlot(c, n-1)
				if err != nil {
					return err
				}
				if tr.ProjectID == "" {
					if ctx.jsonOutput() {
						return writeJSON(cmd, tr)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "No project in slot %d\n", n)
					return nil
				}
				return ctx.printTransition(cmd, "slot "+args[0], tr)
			})
		},
	}
}

func newStopAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				closed, err := backend.StopAll(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.EntriesResponse{Entries: closed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d timer(s)\n", len(closed))
				return nil
			})
		},
	}
}

func (c *commandContext) printTransition(cmd *cobra.Command, label string, tr timer.Transition) error {
	if c.jsonOutput() {
		return writeJSON(cmd, tr)
	}
	out := cmd.OutOrStdout()
	switch {
	case !tr.Changed && tr.Running:
		fmt.Fprintf(out, "%s is already running\n", label)
	case !tr.Changed:
		fmt.Fprintf(out, "%s is not running\n", label)
	case tr.Running:
		fmt.Fprintf(out, "Started %s at %s\n", label, tr.Entry.StartTime.Local().Format("15:04"))
	default:
		fmt.Fprintf(out, "Stopped %s after %s\n", label, report.FormatClock(tr.Entry.Duration(tr.Entry.StartTime)))
	}
	return nil
}
