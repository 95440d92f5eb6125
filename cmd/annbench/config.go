package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/annidx"
)

const envPrefix = "ANNBENCH"

// Config holds the benchmark settings. Every field can be set through an
// ANNBENCH_* environment variable and overridden by a command line flag.
type Config struct {
	Index          string  `envconfig:"INDEX" default:"both"`
	Vectors        int     `envconfig:"VECTORS" default:"1000"`
	Queries        int     `envconfig:"QUERIES" default:"100"`
	Dimension      int     `envconfig:"DIMENSION" default:"16"`
	K              int     `envconfig:"K" default:"10"`
	M              int     `envconfig:"M" default:"16"`
	EFConstruction int     `envconfig:"EF_CONSTRUCTION" default:"200"`
	EFSearch       int     `envconfig:"EF_SEARCH" default:"0"`
	NList          int     `envconfig:"NLIST" default:"10"`
	NProbe         int     `envconfig:"NPROBE" default:"2"`
	Seed           int64   `envconfig:"SEED" default:"42"`
	Workers        int     `envconfig:"WORKERS" default:"4"`
	MinRecall      float64 `envconfig:"MIN_RECALL" default:"0"`
	MetricsAddr    string  `envconfig:"METRICS_ADDR" default:""`
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string  `envconfig:"LOG_FORMAT" default:"text"`
}

// Config validation errors
var (
	ErrInvalidIndex     = errors.New("index must be hnsw, ivf or both")
	ErrInvalidSize      = errors.New("vectors, queries, dimension and k must be positive")
	ErrInvalidNList     = errors.New("nlist must be positive and not exceed vectors")
	ErrInvalidWorkers   = errors.New("workers must be positive")
	ErrInvalidMinRecall = errors.New("min_recall must be within [0, 1]")
	ErrInvalidLogFormat = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn, or error")
)

// LoadConfig reads an optional .env file and then the environment.
// An explicitly named envFile must exist; the default ".env" may be absent.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid.
func ValidateConfig(cfg *Config) error {
	switch cfg.Index {
	case "hnsw", "ivf", "both":
	default:
		return ErrInvalidIndex
	}
	if cfg.Vectors <= 0 || cfg.Queries <= 0 || cfg.Dimension <= 0 || cfg.K <= 0 {
		return ErrInvalidSize
	}
	if cfg.NList <= 0 || cfg.NList > cfg.Vectors {
		return ErrInvalidNList
	}
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if cfg.MinRecall < 0 || cfg.MinRecall > 1 {
		return ErrInvalidMinRecall
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return ErrInvalidLogFormat
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ErrInvalidLogLevel
	}
}

// NewLogger builds the logger described by the configuration.
func (cfg *Config) NewLogger() *annidx.Logger {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return annidx.NewLogger(slog.NewJSONHandler(os.Stderr, opts))
	}
	return annidx.NewLogger(slog.NewTextHandler(os.Stderr, opts))
}
