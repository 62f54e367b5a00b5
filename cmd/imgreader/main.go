package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lewtec/imgreader/internal/logging"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	logFormat  string
	project    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgreader",
	Short: "Organize, evaluate and export project images",
	Long: strings.TrimSpace(`
Keep images in named projects, group them into folders, describe them with an
AI model and export copies renamed after what the model saw.
    `),
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is imgreader.yaml in the data dir)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the catalogue and the image files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "project to work on (default is the most recently opened)")
}
