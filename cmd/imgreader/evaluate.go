package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/workspace"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Describe images with the configured evaluator",
	Long: `Describe images with the configured evaluator in one batched call.

Without flags only images that were never evaluated are sent. --all sends
every image again and --image sends a single one. --folder limits --all and
the default mode to one folder.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		image, _ := cmd.Flags().GetString("image")
		all, _ := cmd.Flags().GetBool("all")
		folder, _ := cmd.Flags().GetString("folder")
		if image != "" && (all || folder != "") {
			return errors.New("--image cannot be combined with --all or --folder")
		}
		req := workspace.EvaluationRequest{Mode: workspace.EvaluateNew, Folder: optional(folder)}
		if all {
			req.Mode = workspace.ReevaluateAll
		}
		if image != "" {
			req.Mode = workspace.EvaluateSelected
		}
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if image != "" {
				if err := a.ws.Click(ctx, image); err != nil {
					return err
				}
			}
			names, err := a.ws.Evaluate(ctx, req)
			if err != nil {
				return err
			}
			evaluations := a.ws.Snapshot().Evaluations
			for _, name := range names {
				printEvaluation(a.out, evaluations, name)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export DIR",
	Short: "Copy evaluated images to DIR renamed with their suggested suffix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			failures, err := a.ws.Export(ctx, args[0])
			if err != nil {
				return err
			}
			for _, failure := range failures {
				fmt.Fprintf(a.out, "failed: %s\n", failure)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d images failed to export", len(failures))
			}
			return nil
		})
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the evaluation prompt and temperature of a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		reset, _ := cmd.Flags().GetBool("reset")
		changed := reset || cmd.Flags().Changed("prompt") || cmd.Flags().Changed("temperature")
		return runInProject(cmd, func(ctx context.Context, a *app) error {
			if changed {
				settings := a.ws.Snapshot().Settings
				if reset {
					settings = domain.ProjectSettings{}
				}
				if cmd.Flags().Changed("prompt") {
					settings.CustomPrompt = optional(prompt)
				}
				if cmd.Flags().Changed("temperature") {
					settings.Temperature = &temperature
				}
				if err := a.ws.UpdateSettings(ctx, settings); err != nil {
					return err
				}
			}
			s := a.ws.Snapshot().Settings
			shown := "(default)"
			if s.CustomPrompt != nil {
				shown = *s.CustomPrompt
			}
			temp := "(default)"
			if s.Temperature != nil {
				temp = fmt.Sprintf("%.2f", *s.Temperature)
			}
			fmt.Fprintf(a.out, "prompt: %s\ntemperature: %s\n", shown, temp)
			return nil
		})
	},
}

func init() {
	evaluateCmd.Flags().String("image", "", "evaluate this image only")
	evaluateCmd.Flags().Bool("all", false, "evaluate every image again")
	evaluateCmd.Flags().String("folder", "", "limit the evaluation to a folder")
	settingsCmd.Flags().String("prompt", "", "custom evaluation prompt (empty restores the default)")
	settingsCmd.Flags().Float64("temperature", 0, "sampling temperature between 0 and 1")
	settingsCmd.Flags().Bool("reset", false, "restore the default prompt and temperature")
	rootCmd.AddCommand(evaluateCmd, exportCmd, settingsCmd)
}
