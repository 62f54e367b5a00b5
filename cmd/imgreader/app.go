package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/backend"
	"github.com/lewtec/imgreader/internal/config"
	"github.com/lewtec/imgreader/internal/evaluator"
	"github.com/lewtec/imgreader/internal/filestore"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/repository"
	"github.com/lewtec/imgreader/internal/workspace"
)

// app is everything a command needs: the loaded configuration, the
// catalogue and a workspace driving it.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	backend *backend.Backend
	ws      *workspace.Workspace
	out     io.Writer
}

// printer shows workspace notices on the command output
type printer struct {
	w io.Writer
}

func (p printer) Notify(n workspace.Notice) {
	if n.Detail != "" {
		fmt.Fprintf(p.w, "%s: %s (%s)\n", n.Level, n.Message, n.Detail)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", n.Level, n.Message)
}

func loadConfig() (*config.Config, error) {
	filename := configFile
	if filename == "" && dataDir != "" {
		candidate := filepath.Join(dataDir, config.FileName)
		if _, err := os.Stat(candidate); err == nil {
			filename = candidate
		}
	}
	cfg, err := config.Load(filename)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Log.Format == "json" || cfg.Log.Output != "" {
		return logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPath: cfg.Log.Output})
	}
	logging.InitWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	return nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cmd, cfg); err != nil {
		return nil, fmt.Errorf("while setting up logging: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("while creating data dir: %w", err)
	}
	evaluators, err := evaluator.NewFactory(cfg.EvaluatorFactoryConfig())
	if err != nil {
		return nil, err
	}
	db, err := repository.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	logging.Debug("catalogue opened", zap.String("path", cfg.DatabasePath()))

	b := backend.New(db, filestore.NewOS(cfg.DataDir), backend.Options{
		Evaluators:          evaluators,
		Jobs:                cfg.Evaluator.Jobs,
		PreviewMaxDimension: cfg.Preview.MaxDimension,
		PreviewQuality:      cfg.Preview.Quality,
	})
	out := cmd.OutOrStdout()
	ws := workspace.New(b, workspace.Options{
		Notifier: printer{w: out},
		APIKey:   cfg.Evaluator.APIKey,
	})
	return &app{cfg: cfg, db: db, backend: b, ws: ws, out: out}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// run builds the app for one command invocation and tears it down after.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

// projectName is the project named by --project, or the most recently
// opened one.
func (a *app) projectName(ctx context.Context) (string, error) {
	if project != "" {
		return project, nil
	}
	names, err := a.backend.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", errors.New("no project yet, create one with 'imgreader project new NAME'")
	}
	return names[0], nil
}

func (a *app) openProject(ctx context.Context) error {
	name, err := a.projectName(ctx)
	if err != nil {
		return err
	}
	return a.ws.Open(ctx, name)
}

// runInProject is run with the selected project already open.
func runInProject(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	return run(cmd, func(ctx context.Context, a *app) error {
		if err := a.openProject(ctx); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

// optional turns an empty flag value into nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
