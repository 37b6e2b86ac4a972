// Package config loads hipposim settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/experiment"
)

// Config is the full runtime configuration.
type Config struct {
	Parameters engine.Parameters `yaml:"parameters"`
	Seed       uint64            `yaml:"seed"` // 0 = seed from crypto/rand
	Experiment ExperimentConfig  `yaml:"experiment"`
	Workers    int               `yaml:"workers"` // 0 = sequential estimator
	DBPath     string            `yaml:"db_path"`
	ChartDir   string            `yaml:"chart_dir"`
	API        APIConfig         `yaml:"api"`
	LogLevel   string            `yaml:"log_level"`
}

// ExperimentConfig holds the inputs of the growth and sample studies.
type ExperimentConfig struct {
	experiment.GrowthConfig `yaml:",inline"`

	SampleRuns  int `yaml:"sample_runs"`
	SampleYears int `yaml:"sample_years"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port                int `yaml:"port"`
	CapacityRatePerHour int `yaml:"capacity_rate_per_hour"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Parameters: engine.DefaultParameters(),
		Experiment: ExperimentConfig{
			GrowthConfig: experiment.DefaultGrowthConfig(),
			SampleRuns:   5,
			SampleYears:  100,
		},
		DBPath:   "data/hippos.db",
		ChartDir: "charts",
		API: APIConfig{
			Port:                8080,
			CapacityRatePerHour: 30,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HIPPOSIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HIPPOSIM_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("HIPPOSIM_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("HIPPOSIM_CHART_DIR"); v != "" {
		c.ChartDir = v
	}
	if v := os.Getenv("HIPPOSIM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HIPPOSIM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HIPPOSIM_PORT: %w", err)
		}
		c.API.Port = port
	}
	if v := os.Getenv("HIPPOSIM_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HIPPOSIM_WORKERS: %w", err)
		}
		c.Workers = workers
	}
	return nil
}

// Validate checks the simulation parameters and study settings.
func (c *Config) Validate() error {
	if err := c.Parameters.Validate(); err != nil {
		return err
	}
	e := c.Experiment
	if e.NumSimulations <= 0 {
		return fmt.Errorf("%w: num_simulations %d must be positive", engine.ErrInvalidHorizon, e.NumSimulations)
	}
	if e.NumYears < 0 || e.SampleYears < 0 || e.SampleRuns < 0 {
		return fmt.Errorf("%w: num_years %d, sample_years %d, sample_runs %d must not be negative",
			engine.ErrInvalidHorizon, e.NumYears, e.SampleYears, e.SampleRuns)
	}
	if e.InitialPopulation <= 0 {
		return fmt.Errorf("%w: initial_population %v must be positive", engine.ErrInvalidLogistic, e.InitialPopulation)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port %d out of range", c.API.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
