// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings that control where a daemon keeps its
// pid file, log file and optional lifecycle artifacts.
//
// Values are layered, lowest to highest priority:
//
//  1. Built-in defaults (/var/run/<name>.pid, /var/log/<name>.log)
//  2. The values the embedding application put in its daemon spec
//  3. A YAML config file (--config)
//  4. Environment variables (DAEMONIZE_*, LOG_*)
//  5. Command-line flags, applied by the caller after Load
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/daemonize/internal/log"
	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

// Default directories for pid and log files.
const (
	DefaultRunDir = "/var/run"
	DefaultLogDir = "/var/log"
)

// Config is the complete daemon configuration.
type Config struct {
	Daemon DaemonConfig `yaml:"daemon"`
	Log    LogConfig    `yaml:"log"`
}

// DaemonConfig holds the file locations used by the lifecycle commands.
type DaemonConfig struct {
	// PIDFile is where the running instance records its pid.
	PIDFile string `yaml:"pid_file"`

	// LogFile receives the daemon's stdout and stderr, opened append-only.
	LogFile string `yaml:"log_file"`

	// EventsFile, when set, receives one JSON line per lifecycle event.
	EventsFile string `yaml:"events_file,omitempty"`

	// MetricsTextfile, when set, is rewritten after every lifecycle command
	// in the Prometheus text exposition format.
	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Default returns the built-in configuration for a daemon called name.
func Default(name string) *Config {
	return &Config{
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(DefaultRunDir, name+".pid"),
			LogFile: filepath.Join(DefaultLogDir, name+".log"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(log.FormatText),
		},
	}
}

// Load layers the config file at configPath (if any) and the environment on
// top of base, then validates the result and makes every path absolute.
// base is not modified.
func Load(configPath string, base *Config) (*Config, error) {
	cfg := *base

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &daemonerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in zero log values so minimal configs work.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = string(log.FormatText)
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("DAEMONIZE_EVENTS_FILE"); val != "" {
		c.Daemon.EventsFile = val
	}
	if val := os.Getenv("DAEMONIZE_METRICS_TEXTFILE"); val != "" {
		c.Daemon.MetricsTextfile = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
}

// Validate checks the configuration for missing or conflicting values.
func (c *Config) Validate() error {
	if c.Daemon.PIDFile == "" {
		return &daemonerrors.ConfigError{Key: "daemon.pid_file", Reason: "must not be empty"}
	}
	if c.Daemon.LogFile == "" {
		return &daemonerrors.ConfigError{Key: "daemon.log_file", Reason: "must not be empty"}
	}
	if filepath.Clean(c.Daemon.PIDFile) == filepath.Clean(c.Daemon.LogFile) {
		return &daemonerrors.ConfigError{
			Key:    "daemon.log_file",
			Reason: fmt.Sprintf("must differ from daemon.pid_file (%s)", c.Daemon.PIDFile),
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		return &daemonerrors.ConfigError{
			Key:    "log.level",
			Reason: fmt.Sprintf("must be one of [debug, info, warn, warning, error], got %q", c.Log.Level),
		}
	}
	if c.Log.Format != string(log.FormatJSON) && c.Log.Format != string(log.FormatText) {
		return &daemonerrors.ConfigError{
			Key:    "log.format",
			Reason: fmt.Sprintf("must be one of [json, text], got %q", c.Log.Format),
		}
	}

	return nil
}

// Resolve expands "~/" and makes every configured path absolute. The daemon
// changes its working directory to the log directory, so relative paths
// would otherwise point somewhere else for the detached process.
func (c *Config) Resolve() error {
	fields := []struct {
		key string
		val *string
	}{
		{"daemon.pid_file", &c.Daemon.PIDFile},
		{"daemon.log_file", &c.Daemon.LogFile},
		{"daemon.events_file", &c.Daemon.EventsFile},
		{"daemon.metrics_textfile", &c.Daemon.MetricsTextfile},
	}

	for _, f := range fields {
		if *f.val == "" {
			continue
		}
		expanded, err := expandHome(*f.val)
		if err != nil {
			return &daemonerrors.ConfigError{Key: f.key, Reason: "cannot expand home directory", Cause: err}
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return &daemonerrors.ConfigError{Key: f.key, Reason: "cannot make path absolute", Cause: err}
		}
		*f.val = abs
	}

	return nil
}

// Logging converts the log section into a logger configuration.
func (c *Config) Logging() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = log.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	return cfg
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
