package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/cobra"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/imaging"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/workspace"
)

var importCmd = &cobra.Command{
	Use:   "import PATH...",
	Short: "Copy image files into the project",
	Long: `Copy image files into the project, at the root or into --folder.
Directories are crawled for image files when --recursive is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("folder")
		recursive, _ := cmd.Flags().GetBool("recursive")
		paths, err := collectImages(args, recursive)
		if err != nil {
			return err
		}
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			before := len(a.ws.Snapshot().Previews)
			if folder != "" {
				a.ws.FocusFolder(folder)
			}
			if err := a.ws.ImportIntoFocus(ctx, paths); err != nil {
				return err
			}
			s := a.ws.Snapshot()
			fmt.Fprintf(a.out, "imported %d files, project has %d images (was %d)\n", len(paths), len(s.Previews), before)
			return nil
		})
	},
}

// collectImages expands directories into the image files below them.
func collectImages(args []string, recursive bool) ([]string, error) {
	var (
		paths []string
		mu    sync.Mutex
	)
	for i, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("on %dth argument: %w", i+1, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("on %dth argument: '%s' is a directory, use --recursive", i+1, arg)
		}
		conf := &fastwalk.Config{Follow: false}
		err = fastwalk.Walk(conf, arg, func(fullPath string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.S().Warnf("import: skipping '%s': %s", fullPath, err)
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() || !imaging.IsImageFile(fullPath) {
				return nil
			}
			mu.Lock()
			paths = append(paths, fullPath)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("while crawling '%s': %w", arg, err)
		}
	}
	// fastwalk visits in parallel
	sort.Strings(paths)
	return paths, nil
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List, show, move and delete project images",
}

var imagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List images grouped by folder with their evaluation status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			printHierarchy(a.out, a.ws.Snapshot())
			return nil
		})
	},
}

func printHierarchy(w io.Writer, s workspace.Snapshot) {
	h := s.Hierarchy()
	printImage := func(indent, name string) {
		status := "-"
		if e, ok := s.Evaluations[name]; ok {
			switch {
			case e.Result != nil:
				status = "evaluated"
			case e.FailReason != nil:
				status = "failed"
			}
		}
		fmt.Fprintf(w, "%s%s\t%s\n", indent, name, status)
	}
	for _, name := range h.Root {
		printImage("", name)
	}
	for _, group := range h.Folders {
		fmt.Fprintf(w, "%s/ (%d)\n", group.Name, len(group.Images))
		for _, name := range group.Images {
			printImage("  ", name)
		}
	}
}

var imagesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Load one image and print its details and evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if err := a.ws.Click(ctx, args[0]); err != nil {
				return err
			}
			s := a.ws.Snapshot()
			if s.FullImage == nil {
				return fmt.Errorf("image '%s' could not be loaded", args[0])
			}
			fmt.Fprintf(a.out, "%s\t%dx%d\t%d bytes\n", s.FullImage.Name, s.FullImage.Width, s.FullImage.Height, s.FullImage.SizeBytes)
			printEvaluation(a.out, s.Evaluations, args[0])
			return nil
		})
	},
}

func printEvaluation(w io.Writer, evaluations map[string]domain.Evaluation, name string) {
	e, ok := evaluations[name]
	switch {
	case !ok:
		fmt.Fprintf(w, "%s: not evaluated\n", name)
	case e.FailReason != nil:
		fmt.Fprintf(w, "%s: failed: %s\n", name, *e.FailReason)
	default:
		suffix := ""
		if e.Result.SuggestedSuffix != nil {
			suffix = *e.Result.SuggestedSuffix
		}
		fmt.Fprintf(w, "%s: %s [%s]\n", name, e.Result.BriefDescription, suffix)
	}
}

// selectImages builds the workspace selection from names, or from every
// image of --in when no names are given.
func selectImages(a *app, names []string, in string) error {
	if len(names) == 0 && in == "" {
		return errors.New("name some images or pass --in FOLDER")
	}
	a.ws.ClearSelection()
	if len(names) == 0 {
		a.ws.SelectAll(&in)
		return nil
	}
	for _, name := range names {
		if err := a.ws.ToggleClick(name); err != nil {
			return err
		}
	}
	return nil
}

var imagesMoveCmd = &cobra.Command{
	Use:   "move [NAME...]",
	Short: "Move images into a folder, or to the root without --to",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		in, _ := cmd.Flags().GetString("in")
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if err := selectImages(a, args, in); err != nil {
				return err
			}
			n := a.ws.Snapshot().Selection.Len()
			if err := a.ws.MoveSelection(ctx, optional(to)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "moved %d images\n", n)
			return nil
		})
	},
}

var imagesDeleteCmd = &cobra.Command{
	Use:   "delete [NAME...]",
	Short: "Delete images and their evaluations",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if err := selectImages(a, args, in); err != nil {
				return err
			}
			n := a.ws.Snapshot().Selection.Len()
			if err := a.ws.DeleteSelection(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %d images\n", n)
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringP("folder", "f", "", "import into this folder")
	importCmd.Flags().BoolP("recursive", "r", false, "crawl directories for image files")
	imagesMoveCmd.Flags().String("to", "", "target folder (root when empty)")
	imagesMoveCmd.Flags().String("in", "", "move every image of this folder")
	imagesDeleteCmd.Flags().String("in", "", "delete every image of this folder")

	imagesCmd.AddCommand(imagesListCmd, imagesShowCmd, imagesMoveCmd, imagesDeleteCmd)
	rootCmd.AddCommand(importCmd, imagesCmd)
}
