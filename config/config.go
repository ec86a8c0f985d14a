// Package config loads pipeline settings from YAML, .env files and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Render RenderConfig `yaml:"render"`
	Log    LogConfig    `yaml:"log"`
}

// RenderConfig controls page rendering.
type RenderConfig struct {
	// Scale is the viewport scale pages are rendered at.
	Scale float64 `yaml:"scale"`
	// MaxFormDepth limits Form XObject nesting.
	MaxFormDepth int `yaml:"max_form_depth"`
	// EventBuffer is the capacity of the controller's event channel.
	EventBuffer int `yaml:"event_buffer"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json or console
	Service string `yaml:"service"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Scale:        1.5,
			MaxFormDepth: 12,
			EventBuffer:  4,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Service: "pdfform",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies a .env
// file from the working directory, if present, and PDFFORM_* environment
// variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PDFFORM_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PDFFORM_SCALE %q: %w", v, err)
		}
		cfg.Render.Scale = scale
	}

	if v := os.Getenv("PDFFORM_MAX_FORM_DEPTH"); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PDFFORM_MAX_FORM_DEPTH %q: %w", v, err)
		}
		cfg.Render.MaxFormDepth = depth
	}

	if v := os.Getenv("PDFFORM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv("PDFFORM_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	return nil
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *Config) Validate() error {
	if c.Render.Scale <= 0 {
		return fmt.Errorf("render scale must be positive, got %g", c.Render.Scale)
	}

	if c.Render.MaxFormDepth < 1 {
		return fmt.Errorf("max_form_depth must be at least 1, got %d", c.Render.MaxFormDepth)
	}

	if c.Render.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must not be negative, got %d", c.Render.EventBuffer)
	}

	if l, err := zerolog.ParseLevel(c.Log.Level); err != nil || l == zerolog.NoLevel {
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}
