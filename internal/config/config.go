// Package config loads the analyzer settings of a project from phpflow.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "phpflow.yaml"

type Saturation struct {
	MaxClauses    int `yaml:"max_clauses"`
	MaxIterations int `yaml:"max_iterations"`
}

type Formula struct {
	MaxDisjunctionProduct int `yaml:"max_disjunction_product"`
}

type Config struct {
	Saturation Saturation `yaml:"saturation"`
	Formula    Formula    `yaml:"formula"`
	// LoopIterations bounds the passes over a loop body before its locals are
	// widened to the last combined state.
	LoopIterations int `yaml:"loop_iterations"`
	// LiteralLimit is the number of distinct literals of one base type kept
	// when branch types are combined.
	LiteralLimit int      `yaml:"literal_limit"`
	Workers      int      `yaml:"workers"`
	MinLevel     string   `yaml:"min_level"`
	ExcludeDirs  []string `yaml:"exclude_dirs"`
	LogLevel     string   `yaml:"log_level"`
	LogSections  []string `yaml:"log_sections"`
}

func Default() Config {
	return Config{
		Saturation: Saturation{
			MaxClauses:    100,
			MaxIterations: 25,
		},
		Formula: Formula{
			MaxDisjunctionProduct: 256,
		},
		LoopIterations: 4,
		Workers:        runtime.NumCPU(),
		MinLevel:       "info",
		ExcludeDirs:    []string{"vendor/bin", "node_modules", "var/cache"},
		LogLevel:       "warn",
	}
}

// Load reads phpflow.yaml from projectRoot. A missing file yields the
// defaults; keys absent from the file keep their default value.
func Load(projectRoot string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(projectRoot, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Saturation.MaxClauses < 0 || c.Saturation.MaxIterations < 0 {
		return errors.New("saturation limits must not be negative")
	}
	if c.Formula.MaxDisjunctionProduct < 0 {
		return errors.New("formula.max_disjunction_product must not be negative")
	}
	if c.LoopIterations < 1 {
		return errors.New("loop_iterations must be at least 1")
	}
	switch strings.ToLower(c.MinLevel) {
	case "", "info", "warning", "error":
	default:
		return fmt.Errorf("unknown min_level %q", c.MinLevel)
	}
	return nil
}

// ProjectCacheFolder returns the per project directory under the user config
// dir, creating it when needed.
func ProjectCacheFolder(projectRoot string) (string, error) {
	configDir, err := userConfigDir()
	if err != nil {
		return "", err
	}

	projectSlug := strings.ReplaceAll(projectRoot, "/", "_")
	projectSlug = strings.ReplaceAll(projectSlug, ":", "_")
	projectSlug = strings.ReplaceAll(projectSlug, "\\", "_")

	expectedDir := filepath.Join(configDir, "phpflow", projectSlug)

	if _, err := os.Stat(expectedDir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to check directory: %w", err)
		}
		err = os.MkdirAll(expectedDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return expectedDir, nil
}

func userConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		usr, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("failed to get current user: %w", err)
		}
		return filepath.Join(usr.HomeDir, ".config"), nil
	}
	return configDir, nil
}
