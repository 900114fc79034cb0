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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tombee/daemonize/internal/log"
	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DAEMONIZE_EVENTS_FILE",
		"DAEMONIZE_METRICS_TEXTFILE",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"LOG_SOURCE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daemonize.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default("my_worker")

	if cfg.Daemon.PIDFile != "/var/run/my_worker.pid" {
		t.Errorf("expected pid file /var/run/my_worker.pid, got %q", cfg.Daemon.PIDFile)
	}
	if cfg.Daemon.LogFile != "/var/log/my_worker.log" {
		t.Errorf("expected log file /var/log/my_worker.log, got %q", cfg.Daemon.LogFile)
	}
	if cfg.Daemon.EventsFile != "" || cfg.Daemon.MetricsTextfile != "" {
		t.Errorf("expected optional artifacts to be disabled, got %+v", cfg.Daemon)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected log format 'text', got %q", cfg.Log.Format)
	}
}

func TestLoad_BaseOnly(t *testing.T) {
	clearEnv(t)
	base := Default("hellod")

	cfg, err := Load("", base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Daemon.PIDFile != base.Daemon.PIDFile {
		t.Errorf("expected pid file %q, got %q", base.Daemon.PIDFile, cfg.Daemon.PIDFile)
	}
	if cfg == base {
		t.Error("Load must not return base itself")
	}
}

func TestLoad_FileOverridesBase(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
daemon:
  pid_file: `+filepath.Join(dir, "a.pid")+`
  events_file: `+filepath.Join(dir, "events.jsonl")+`
log:
  level: debug
  format: json
`)
	base := Default("hellod")

	cfg, err := Load(path, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Daemon.PIDFile != filepath.Join(dir, "a.pid") {
		t.Errorf("expected pid file from config file, got %q", cfg.Daemon.PIDFile)
	}
	if cfg.Daemon.LogFile != "/var/log/hellod.log" {
		t.Errorf("expected log file to keep base value, got %q", cfg.Daemon.LogFile)
	}
	if cfg.Daemon.EventsFile != filepath.Join(dir, "events.jsonl") {
		t.Errorf("expected events file from config file, got %q", cfg.Daemon.EventsFile)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if base.Daemon.PIDFile != "/var/run/hellod.pid" {
		t.Errorf("Load modified base: %q", base.Daemon.PIDFile)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
daemon:
  events_file: `+filepath.Join(dir, "file.jsonl")+`
log:
  level: debug
`)
	t.Setenv("DAEMONIZE_EVENTS_FILE", filepath.Join(dir, "env.jsonl"))
	t.Setenv("DAEMONIZE_METRICS_TEXTFILE", filepath.Join(dir, "daemonize.prom"))
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_SOURCE", "true")

	cfg, err := Load(path, Default("hellod"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Daemon.EventsFile != filepath.Join(dir, "env.jsonl") {
		t.Errorf("expected events file from env, got %q", cfg.Daemon.EventsFile)
	}
	if cfg.Daemon.MetricsTextfile != filepath.Join(dir, "daemonize.prom") {
		t.Errorf("expected metrics textfile from env, got %q", cfg.Daemon.MetricsTextfile)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn', got %q", cfg.Log.Level)
	}
	if !cfg.Log.AddSource {
		t.Error("expected add_source from env")
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		config  string
		wantKey string
	}{
		{
			name:    "missing file",
			wantKey: "config_file",
		},
		{
			name:    "malformed yaml",
			config:  "daemon: [unterminated",
			wantKey: "config_file",
		},
		{
			name:    "invalid log level",
			config:  "log:\n  level: loud\n",
			wantKey: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.config != "" {
				path = writeConfig(t, tt.config)
			}

			_, err := Load(path, Default("hellod"))

			var cfgErr *daemonerrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Key != tt.wantKey {
				t.Errorf("expected key %q, got %q", tt.wantKey, cfgErr.Key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantKey string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "empty pid file",
			modify:  func(c *Config) { c.Daemon.PIDFile = "" },
			wantKey: "daemon.pid_file",
		},
		{
			name:    "empty log file",
			modify:  func(c *Config) { c.Daemon.LogFile = "" },
			wantKey: "daemon.log_file",
		},
		{
			name: "log file same as pid file",
			modify: func(c *Config) {
				c.Daemon.PIDFile = "/tmp/x/d.pid"
				c.Daemon.LogFile = "/tmp/x/../x/d.pid"
			},
			wantKey: "daemon.log_file",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "trace" },
			wantKey: "log.level",
		},
		{
			name:   "warning alias",
			modify: func(c *Config) { c.Log.Level = "warning" },
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantKey: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("hellod")
			tt.modify(cfg)

			err := cfg.Validate()

			if tt.wantKey == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *daemonerrors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Key != tt.wantKey {
				t.Errorf("expected key %q, got %q", tt.wantKey, cfgErr.Key)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	cfg := Default("hellod")
	cfg.Daemon.PIDFile = "~/run/hellod.pid"
	cfg.Daemon.LogFile = "logs/hellod.log"
	cfg.Daemon.MetricsTextfile = "/var/lib/node_exporter/hellod.prom"

	if err := cfg.Resolve(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Daemon.PIDFile != filepath.Join(home, "run", "hellod.pid") {
		t.Errorf("expected home-relative pid file, got %q", cfg.Daemon.PIDFile)
	}
	if cfg.Daemon.LogFile != filepath.Join(wd, "logs", "hellod.log") {
		t.Errorf("expected log file relative to %s, got %q", wd, cfg.Daemon.LogFile)
	}
	if cfg.Daemon.MetricsTextfile != "/var/lib/node_exporter/hellod.prom" {
		t.Errorf("expected absolute path unchanged, got %q", cfg.Daemon.MetricsTextfile)
	}
	if cfg.Daemon.EventsFile != "" {
		t.Errorf("expected unset events file to stay empty, got %q", cfg.Daemon.EventsFile)
	}
}

func TestLogging(t *testing.T) {
	cfg := Default("hellod")
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	cfg.Log.AddSource = true

	lc := cfg.Logging()

	if lc.Level != "debug" {
		t.Errorf("expected level 'debug', got %q", lc.Level)
	}
	if lc.Format != log.FormatJSON {
		t.Errorf("expected json format, got %q", lc.Format)
	}
	if !lc.AddSource {
		t.Error("expected add_source")
	}
	if lc.Output == nil {
		t.Error("expected a default output")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	cfg := Default("hellod")
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "log.format") {
		t.Errorf("expected error to name the key, got %v", err)
	}
}
