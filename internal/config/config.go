/*
PURPOSE:
  Defines the configuration structure and loading logic for curve-fitter.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the custom-function store, synthetic data and
    every optimizer's tuning knobs.
  - Defaults reproduce the documented optimizer defaults exactly.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (CURVEFIT_...).

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - A missing default file falls back to defaults; a missing explicit file is an error.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Fields absent from the file keep their defaults (we unmarshal over DefaultConfig()).

USAGE:
  cfg, err := config.Load("curvefit.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/config/algorithms.go
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for curve-fitter.
type Config struct {
	StorePath string `yaml:"store_path"`
	OutputDir string `yaml:"output_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// Workers bounds how many algorithms Compare runs at once
	Workers    int        `yaml:"workers"`
	Synthetic  Synthetic  `yaml:"synthetic"`
	Algorithms Algorithms `yaml:"algorithms"`
}

// Synthetic configures generated datasets.
type Synthetic struct {
	NumPoints  int     `yaml:"num_points"`
	NoiseLevel float64 `yaml:"noise_level"`
	XMin       float64 `yaml:"x_min"`
	XMax       float64 `yaml:"x_max"`
	// Seed of 0 draws a fresh seed per run
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorePath: "custom_functions/functions.json",
		OutputDir: ".",
		LogLevel:  "info",
		LogFormat: "text",
		Workers:   1,
		Synthetic: Synthetic{
			NumPoints:  50,
			NoiseLevel: 0.05,
			XMin:       0.1,
			XMax:       10,
		},
		Algorithms: DefaultAlgorithms(),
	}
}

// DefaultFiles are searched in order when no path is given.
var DefaultFiles = []string{"curvefit.yaml", "curve_fitter.yaml", ".curvefit.yaml"}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		// Search for defaults
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", name, err)
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from CURVEFIT_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("CURVEFIT_STORE"); v != "" {
		c.StorePath = v
	}
	if v := getenv("CURVEFIT_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := getenv("CURVEFIT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("CURVEFIT_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CURVEFIT_SEED: %w", err)
		}
		c.SetSeed(seed)
	}
	return nil
}

// SetSeed applies one seed to synthetic data and every stochastic optimizer.
func (c *Config) SetSeed(seed int64) {
	c.Synthetic.Seed = seed
	c.Algorithms.DifferentialEvolution.Seed = seed
	c.Algorithms.BasinHopping.Seed = seed
	c.Algorithms.DualAnnealing.Seed = seed
}

// Validate rejects values no component can use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if c.StorePath == "" {
		return errors.New("store_path must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Synthetic.NumPoints < 1 {
		return fmt.Errorf("synthetic.num_points must be at least 1, got %d", c.Synthetic.NumPoints)
	}
	if c.Synthetic.NoiseLevel < 0 {
		return fmt.Errorf("synthetic.noise_level must not be negative, got %v", c.Synthetic.NoiseLevel)
	}
	if c.Synthetic.XMin >= c.Synthetic.XMax {
		return fmt.Errorf("synthetic.x_min (%v) must be below x_max (%v)", c.Synthetic.XMin, c.Synthetic.XMax)
	}
	return c.Algorithms.Validate()
}
