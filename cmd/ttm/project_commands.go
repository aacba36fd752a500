package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ttm/internal/api"
	"ttm/internal/ledger"
	"ttm/internal/report"
	"ttm/internal/tracker"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "p"},
		Short:   "Manage projects",
	}

	projectCmd.AddCommand(newProjectAddCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectRenameCommand(ctx))
	projectCmd.AddCommand(newProjectColorCommand(ctx))
	projectCmd.AddCommand(newProjectArchiveCommand(ctx, "archive", true))
	projectCmd.AddCommand(newProjectArchiveCommand(ctx, "unarchive", false))
	projectCmd.AddCommand(newProjectDeleteCommand(ctx))
	projectCmd.AddCommand(newProjectResetCommand(ctx))
	return projectCmd
}

func newProjectAddCommand(ctx *commandContext) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				project, err := backend.AddProject(c, args[0], color)
				if err != nil {
					return err
				}
				return ctx.printProject(cmd, "Created", project)
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Color tag as #RRGGBB (default: next palette color)")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				projects, err := backend.Projects(c, all)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ProjectListResponse{Projects: projects})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderProjectTable(projects, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived projects")
	return cmd
}

func renderProjectTable(projects []tracker.ProjectSummary, colorize bool) string {
	if len(projects) == 0 {
		return "No projects. Create one with `ttm project add <name>`.\n"
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		slot := "-"
		if p.Slot > 0 {
			slot = strconv.Itoa(p.Slot)
		}
		state := ""
		switch {
		case p.Running:
			state = "running " + report.FormatClock(p.Elapsed)
		case p.Archived:
			state = "archived"
		}
		rows = append(rows, []string{
			slot,
			colorSwatch(p.ColorTag, colorize) + " " + p.Name,
			state,
			report.FormatShort(p.Today),
			report.FormatShort(p.Total),
		})
	}
	return renderTable(
		[]string{"Slot", "Project", "State", "Today", "Total"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
		nil,
	)
}

func newProjectRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <project> <new-name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				project, err := backend.RenameProject(c, args[0], args[1])
				if err != nil {
					return err
				}
				return ctx.printProject(cmd, "Renamed", project)
			})
		},
	}
}

func newProjectColorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "color <project> <#RRGGBB>",
		Short: "Change a project's color tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				project, err := backend.SetColor(c, args[0], args[1])
				if err != nil {
					return err
				}
				return ctx.printProject(cmd, "Recolored", project)
			})
		},
	}
}

func newProjectArchiveCommand(ctx *commandContext, use string, archived bool) *cobra.Command {
	short := "Archive a project, stopping its timer"
	verb := "Archived"
	if !archived {
		short = "Restore an archived project"
		verb = "Unarchived"
	}
	return &cobra.Command{
		Use:   use + " <project>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				project, err := backend.SetArchived(c, args[0], archived)
				if err != nil {
					return err
				}
				return ctx.printProject(cmd, verb, project)
			})
		},
	}
}

func newProjectDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and all of its entries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				project, err := backend.DeleteProject(c, args[0])
				if err != nil {
					return err
				}
				return ctx.printProject(cmd, "Deleted", project)
			})
		},
	}
}

func newProjectResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <project>",
		Short: "Remove every entry of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd, func(c context.Context, backend api.Backend) error {
				removed, err := backend.ResetProject(c, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ResetResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries from %s\n", removed, args[0])
				return nil
			})
		},
	}
}

func (c *commandContext) printProject(cmd *cobra.Command, verb string, project ledger.Project) error {
	if c.jsonOutput() {
		return writeJSON(cmd, api.ProjectResponse{Project: project})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s %s %s\n", verb, project.Name, colorSwatch(project.ColorTag, shouldColorize(out)), project.ColorTag)
	return nil
}
