// Package config loads the YAML configuration shared by the CLI and the API
// server.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
)

// Config is the root of config.yaml.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// AnalysisConfig holds the SPC defaults applied when a request does not set
// its own.
type AnalysisConfig struct {
	SubgroupSize int `yaml:"subgroup_size" validate:"min=1"`
	// Interpretation forces how stored tolerances are read: auto, deviation
	// or absolute.
	Interpretation string              `yaml:"interpretation" validate:"oneof=auto deviation absolute"`
	Thresholds     analysis.Thresholds `yaml:"thresholds"`
	// Workers bounds how many characteristics are analyzed concurrently.
	Workers int `yaml:"workers" validate:"min=1,max=64"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// StorageConfig selects the measurement store. Path is the BadgerDB
// directory and is ignored when InMemory is set.
type StorageConfig struct {
	Path     string `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory bool   `yaml:"in_memory"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			SubgroupSize:   analysis.DefaultSubgroupSize,
			Interpretation: string(analysis.InterpretAuto),
			Thresholds:     analysis.DefaultThresholds,
			Workers:        4,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "data/medicion",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	cfg, err = Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a YAML document over the defaults and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AnalysisOptions converts the analysis section into engine options.
func (c Config) AnalysisOptions() (analysis.Options, error) {
	mode, err := analysis.ParseInterpretation(c.Analysis.Interpretation)
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		SubgroupSize:   c.Analysis.SubgroupSize,
		Interpretation: mode,
		Thresholds:     c.Analysis.Thresholds,
	}, nil
}

// NewLogger builds the process logger from cfg, writing to w.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
