// Package config provides tool-level configuration for tusk: output
// defaults and the review-agent invocation. Workspace state config lives
// in the workspace's config.json; this package only covers settings that
// belong to the tool installation, not the tracked store.
//
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (TUSK_*)
// 3. Project config (.tusk/tool.yaml in cwd)
// 4. Home config (~/.tusk/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all tusk tool configuration.
type Config struct {
	// Output controls the default output format (text, json).
	Output string `yaml:"output" json:"output"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Review settings for the external review agent.
	Review ReviewConfig `yaml:"review" json:"review"`
}

// ReviewConfig holds review-agent settings.
type ReviewConfig struct {
	// Command is the agent invocation, split on whitespace.
	// Default: "claude -p".
	Command string `yaml:"command" json:"command"`

	// Model is an opaque string passed to the agent.
	Model string `yaml:"model" json:"model"`

	// TimeoutSeconds bounds one agent invocation. Default: 600.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Default config values.
const (
	defaultOutput         = "text"
	defaultReviewCommand  = "claude -p"
	defaultTimeoutSeconds = 600
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output: defaultOutput,
		Review: ReviewConfig{
			Command:        defaultReviewCommand,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// CommandArgv splits the review command into argv form.
func (c *Config) CommandArgv() []string {
	return strings.Fields(c.Review.Command)
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tusk", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("TUSK_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".tusk", "tool.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("TUSK_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("TUSK_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("TUSK_REVIEW_COMMAND"); v != "" {
		cfg.Review.Command = v
	}
	if v := os.Getenv("TUSK_MODEL"); v != "" {
		cfg.Review.Model = v
	}
	if v := os.Getenv("TUSK_REVIEW_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Review.TimeoutSeconds = secs
		}
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	if src.Verbose {
		dst.Verbose = true
	}
	mergeStr(&dst.Review.Command, src.Review.Command)
	mergeStr(&dst.Review.Model, src.Review.Model)
	mergeInt(&dst.Review.TimeoutSeconds, src.Review.TimeoutSeconds)
	return dst
}
