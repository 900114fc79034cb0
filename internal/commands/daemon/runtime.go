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

//go:build unix

// Package daemon implements the lifecycle commands of a daemonized program.
package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/tombee/daemonize/internal/commands/shared"
	"github.com/tombee/daemonize/internal/config"
	"github.com/tombee/daemonize/internal/lifecycle"
	"github.com/tombee/daemonize/internal/log"
)

// Runtime carries what every lifecycle command needs from the embedding
// program.
type Runtime struct {
	// Name labels metrics and log lines.
	Name string

	// Base holds the built-in defaults with the program's own settings
	// applied. The config file, environment and flags are layered on top.
	Base *config.Config

	// Flags receives the global flag values.
	Flags shared.Flags

	Task   func(ctx context.Context) error
	OnStop func()

	// Args is the argv of the re-executed process. Defaults to os.Args.
	Args []string

	Out io.Writer
	Err io.Writer
}

// Resolve layers the config file, environment and flags over Base.
func (r *Runtime) Resolve() (*config.Config, error) {
	cfg, err := config.Load(r.Flags.Config, r.Base)
	if err != nil {
		return nil, err
	}

	if r.Flags.PIDFile == "" && r.Flags.LogFile == "" {
		return cfg, nil
	}
	if r.Flags.PIDFile != "" {
		cfg.Daemon.PIDFile = r.Flags.PIDFile
	}
	if r.Flags.LogFile != "" {
		cfg.Daemon.LogFile = r.Flags.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Logger builds the diagnostics logger for cfg. --verbose forces debug.
func (r *Runtime) Logger(cfg *config.Config) *slog.Logger {
	lc := cfg.Logging()
	lc.Output = r.errOut()
	if r.Flags.Verbose {
		lc.Level = "debug"
	}
	return log.WithComponent(log.New(lc), "daemonize")
}

// Controller wires the lifecycle controller for cfg.
func (r *Runtime) Controller(cfg *config.Config, logger *slog.Logger) *lifecycle.Controller {
	pidFile := lifecycle.NewPIDFile(cfg.Daemon.PIDFile)
	events := lifecycle.NewEventLogger(cfg.Daemon.EventsFile)

	var metrics *lifecycle.Metrics
	if cfg.Daemon.MetricsTextfile != "" {
		metrics = lifecycle.NewMetrics(r.Name)
	}

	return &lifecycle.Controller{
		Launcher: &lifecycle.Launcher{
			PIDFile: pidFile,
			LogFile: cfg.Daemon.LogFile,
			Task:    r.Task,
			OnStop:  r.OnStop,
			Args:    r.Args,
			Logger:  logger,
			Events:  events,
		},
		PIDFile:         pidFile,
		Out:             r.out(),
		Logger:          logger,
		Events:          events,
		Metrics:         metrics,
		MetricsTextfile: cfg.Daemon.MetricsTextfile,
	}
}

// Dispatch runs a lifecycle command. Unknown commands print usage
// guidance without reading any configuration.
func (r *Runtime) Dispatch(command string) error {
	switch command {
	case lifecycle.CommandStart, lifecycle.CommandStop, lifecycle.CommandRestart:
	default:
		return (&lifecycle.Controller{Out: r.out()}).Dispatch(command)
	}

	cfg, err := r.Resolve()
	if err != nil {
		return err
	}
	logger := r.Logger(cfg)
	logger.Debug("resolved configuration",
		slog.String(log.CommandKey, command),
		slog.String("pid_file", cfg.Daemon.PIDFile),
		slog.String("log_file", cfg.Daemon.LogFile))

	return r.Controller(cfg, logger).Dispatch(command)
}

func (r *Runtime) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runtime) errOut() io.Writer {
	if r.Err == nil {
		return os.Stderr
	}
	return r.Err
}
