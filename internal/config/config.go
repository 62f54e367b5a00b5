// Package config loads the imgreader configuration from a yaml file, a
// .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lewtec/imgreader/internal/evaluator"
	"github.com/lewtec/imgreader/internal/imaging"
)

// FileName is the config file looked up in the data directory
const FileName = "imgreader.yaml"

type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Log       LogConfig       `yaml:"log"`
	Preview   PreviewConfig   `yaml:"preview"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Server    ServerConfig    `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type PreviewConfig struct {
	MaxDimension int `yaml:"max_dimension"`
	Quality      int `yaml:"quality"`
}

type EvaluatorConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
	APIKey    string `yaml:"api_key"`
	Jobs      int    `yaml:"jobs"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Log:     LogConfig{Level: "info", Format: "console"},
		Preview: PreviewConfig{
			MaxDimension: imaging.PreviewMaxDimension,
			Quality:      imaging.PreviewQuality,
		},
		Evaluator: EvaluatorConfig{
			Provider:  evaluator.ProviderAnthropic,
			Model:     evaluator.DefaultModel,
			MaxTokens: evaluator.DefaultMaxTokens,
			Jobs:      4,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "imgreader")
	}
	return ".imgreader"
}

// Load builds the configuration. Values come from the defaults, then the
// yaml file, then the environment. An empty filename looks for FileName in
// the data directory and tolerates its absence; an explicit one must exist.
// A .env file in the working directory is loaded first when present.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("while loading .env: %w", err)
	}

	cfg := Default()
	if dir := os.Getenv("IMGREADER_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	explicit := filename != ""
	if !explicit {
		filename = filepath.Join(cfg.DataDir, FileName)
	}
	f, err := os.Open(filename)
	switch {
	case err == nil:
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("while parsing '%s': %w", filename, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("while opening config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("IMGREADER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("IMGREADER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("IMGREADER_EVALUATOR"); v != "" {
		cfg.Evaluator.Provider = v
	}
	if v := os.Getenv("IMGREADER_MODEL"); v != "" {
		cfg.Evaluator.Model = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Evaluator.APIKey = v
	}
	if v := os.Getenv("IMGREADER_JOBS"); v != "" {
		jobs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IMGREADER_JOBS: %w", err)
		}
		cfg.Evaluator.Jobs = jobs
	}
	return nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.Log),
		validation.Field(&c.Preview),
		validation.Field(&c.Evaluator),
		validation.Field(&c.Server),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

func (p PreviewConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxDimension, validation.Required, validation.Min(16), validation.Max(4096)),
		validation.Field(&p.Quality, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

func (e EvaluatorConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Provider, validation.Required, validation.In(evaluator.ProviderAnthropic, evaluator.ProviderLorem)),
		validation.Field(&e.MaxTokens, validation.Min(int64(1))),
		validation.Field(&e.Jobs, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
	)
}

// EvaluatorFactoryConfig converts the evaluator section for the evaluator package
func (c *Config) EvaluatorFactoryConfig() evaluator.Config {
	return evaluator.Config{
		Provider:  c.Evaluator.Provider,
		Model:     c.Evaluator.Model,
		MaxTokens: c.Evaluator.MaxTokens,
		Jobs:      c.Evaluator.Jobs,
	}
}

// DatabasePath is the sqlite catalogue inside the data directory
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "imgreader.db")
}
