package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create, list, open, archive and delete projects",
}

var projectNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a project and open it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			return a.ws.CreateProject(ctx, args[0])
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active projects, most recently opened first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			names, err := a.backend.ListProjects(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.out, name)
			}
			return nil
		})
	},
}

var projectArchivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List archived projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			names, err := a.backend.ListArchivedProjects(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.out, name)
			}
			return nil
		})
	},
}

var projectOpenCmd = &cobra.Command{
	Use:   "open NAME",
	Short: "Open a project and make it the default for later commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			if err := a.ws.Open(ctx, args[0]); err != nil {
				return err
			}
			s := a.ws.Snapshot()
			fmt.Fprintf(a.out, "%s: %d images, %d folders, %d evaluated\n",
				s.Project, len(s.Previews), len(s.Folders), len(s.Evaluations))
			return nil
		})
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive NAME",
	Short: "Move a project to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			if err := a.backend.ArchiveProject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "archived %s\n", args[0])
			return nil
		})
	},
}

var projectUnarchiveCmd = &cobra.Command{
	Use:   "unarchive NAME",
	Short: "Restore an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			if err := a.backend.UnarchiveProject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "restored %s\n", args[0])
			return nil
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a project with its images and evaluations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archived, _ := cmd.Flags().GetBool("archived")
		return run(cmd, func(ctx context.Context, a *app) error {
			var err error
			if archived {
				err = a.backend.DeleteArchivedProject(ctx, args[0])
			} else {
				err = a.backend.DeleteProject(ctx, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	projectDeleteCmd.Flags().Bool("archived", false, "delete from the archive")
	projectCmd.AddCommand(projectNewCmd, projectListCmd, projectArchivedCmd, projectOpenCmd,
		projectArchiveCmd, projectUnarchiveCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
