package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage the folders of a project",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			return a.ws.CreateFolder(ctx, args[0])
		})
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders with their image counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			for _, group := range a.ws.Snapshot().Hierarchy().Folders {
				fmt.Fprintf(a.out, "%s\t%d\n", group.Name, len(group.Images))
			}
			return nil
		})
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a folder, re-keying its images and evaluations",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if err := a.ws.RenameFolder(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "renamed %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a folder with its images and evaluations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			n := len(a.ws.Snapshot().Hierarchy().Folder(args[0]))
			if err := a.ws.DeleteFolder(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s with %d images\n", args[0], n)
			return nil
		})
	},
}

func init() {
	folderCmd.AddCommand(folderCreateCmd, folderListCmd, folderRenameCmd, folderDeleteCmd)
	rootCmd.AddCommand(folderCmd)
}
