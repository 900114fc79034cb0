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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	godaemon "github.com/sevlyar/go-daemon"
	"golang.org/x/sys/unix"

	"github.com/tombee/daemonize/internal/log"
	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

// Stage identifies which process of the detach sequence is running.
type Stage string

const (
	// StageController is the process invoked from the shell.
	StageController Stage = "controller"
	// StageSession is the session leader created by the first re-exec.
	StageSession Stage = "session"
	// StageDaemon is the detached process that runs the task.
	StageDaemon Stage = "detached"
)

// Environment variables handing resolved settings to re-executed stages.
const (
	envPrefix     = "_DAEMONIZE_"
	EnvStage      = envPrefix + "STAGE"
	EnvPIDFile    = envPrefix + "PID_FILE"
	EnvLogFile    = envPrefix + "LOG_FILE"
	EnvEventsFile = envPrefix + "EVENTS_FILE"
	EnvLaunchID   = envPrefix + "LAUNCH_ID"
)

// MsgPIDFileExists is written to the log file when a daemon refuses to start.
const MsgPIDFileExists = "Pid file %s already exists.  Not starting.\n"

// Launch stages reported in LaunchError.
const (
	launchStageSpawn    = "spawn"
	launchStageSession  = "session"
	launchStagePIDFile  = "pid_file"
	launchStageRedirect = "redirect"
	launchStageWorkDir  = "workdir"
)

// CurrentStage reports the stage of the running process.
func CurrentStage() Stage {
	if os.Getenv(EnvStage) == string(StageDaemon) {
		return StageDaemon
	}
	if godaemon.WasReborn() {
		return StageSession
	}
	return StageController
}

// Handoff carries the settings resolved by the controller to the
// re-executed stages.
type Handoff struct {
	PIDFile    string
	LogFile    string
	EventsFile string
	LaunchID   string
}

// HandoffFromEnv reads the handoff written by Launch.
func HandoffFromEnv() (Handoff, error) {
	h := Handoff{
		PIDFile:    os.Getenv(EnvPIDFile),
		LogFile:    os.Getenv(EnvLogFile),
		EventsFile: os.Getenv(EnvEventsFile),
		LaunchID:   os.Getenv(EnvLaunchID),
	}
	if h.PIDFile == "" || h.LogFile == "" {
		return h, fmt.Errorf("missing %s or %s in environment", EnvPIDFile, EnvLogFile)
	}
	return h, nil
}

func (h Handoff) environ() []string {
	env := []string{
		EnvPIDFile + "=" + h.PIDFile,
		EnvLogFile + "=" + h.LogFile,
		EnvLaunchID + "=" + h.LaunchID,
	}
	if h.EventsFile != "" {
		env = append(env, EnvEventsFile+"="+h.EventsFile)
	}
	return env
}

// launchEnv returns base without handoff or go-daemon markers, followed by
// the handoff. Markers inherited from an enclosing daemon must not leak into
// a fresh launch.
func launchEnv(base []string, h Handoff) []string {
	env := withoutMarkers(base)
	return append(env, h.environ()...)
}

// daemonEnv is the environment of the detached process: base without
// markers, followed by the handoff and the stage.
func daemonEnv(base []string, h Handoff) []string {
	env := launchEnv(base, h)
	return append(env, EnvStage+"="+string(StageDaemon))
}

// clearHandoffEnv removes the stage and handoff variables from the running
// process, so programs started by the task begin as controllers.
func clearHandoffEnv() {
	for _, key := range []string{EnvStage, EnvPIDFile, EnvLogFile, EnvEventsFile, EnvLaunchID} {
		_ = os.Unsetenv(key)
	}
}

func withoutMarkers(base []string) []string {
	env := make([]string, 0, len(base))
	for _, kv := range base {
		if strings.HasPrefix(kv, envPrefix) || strings.HasPrefix(kv, godaemon.MARK_NAME+"=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// Launcher detaches the current program and runs Task in the background.
type Launcher struct {
	// PIDFile is where the detached process records its pid.
	PIDFile *PIDFile

	// LogFile receives stdout and stderr of the detached process.
	LogFile string

	// Task is the background work. Its context is cancelled on SIGTERM.
	Task func(ctx context.Context) error

	// OnStop, if set, runs when SIGTERM arrives, before the process exits.
	OnStop func()

	// Args is the argv of the re-executed process. Defaults to os.Args.
	Args []string

	Logger *slog.Logger
	Events *EventLogger
}

// Launched describes a started launch as seen by the controller.
type Launched struct {
	// PID is the session leader, which exits as soon as it has spawned
	// the detached process.
	PID      int
	LaunchID string
}

// Launch performs the first re-exec and returns without waiting for the
// detached process. A nil error means only that the session leader was
// spawned; a pid file collision is reported later in the log file.
func (l *Launcher) Launch() (*Launched, error) {
	if l.PIDFile == nil || l.LogFile == "" {
		return nil, &daemonerrors.LaunchError{Stage: launchStageSpawn, Cause: errors.New("pid file and log file are required")}
	}

	logDir := filepath.Dir(l.LogFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, &daemonerrors.LaunchError{Stage: launchStageRedirect, Path: l.LogFile, Cause: err}
	}

	handoff := Handoff{
		PIDFile:    l.PIDFile.Path(),
		LogFile:    l.LogFile,
		EventsFile: l.eventsPath(),
		LaunchID:   uuid.NewString(),
	}

	args := l.Args
	if len(args) == 0 {
		args = os.Args
	}

	dctx := &godaemon.Context{
		LogFileName: l.LogFile,
		LogFilePerm: 0644,
		WorkDir:     logDir,
		Env:         launchEnv(os.Environ(), handoff),
		Args:        args,
	}

	child, err := dctx.Reborn()
	if err != nil {
		return nil, &daemonerrors.LaunchError{Stage: launchStageSpawn, Path: l.LogFile, Cause: err}
	}
	if child == nil {
		// Reborn only returns a nil child inside a re-executed process,
		// which must go through Resume instead.
		return nil, &daemonerrors.LaunchError{Stage: launchStageSpawn, Cause: errors.New("launch called from a re-executed stage")}
	}

	l.logger().Debug("spawned session leader",
		slog.Int(log.PIDKey, child.Pid),
		slog.String(log.LaunchIDKey, handoff.LaunchID),
		slog.String(log.PathKey, l.LogFile))

	launched := &Launched{PID: child.Pid, LaunchID: handoff.LaunchID}
	_ = child.Release()
	return launched, nil
}

// Resume continues the detach sequence inside a re-executed process and
// returns the exit code for that process. The pid, log and events paths
// come from the handoff and override the Launcher's own. The handoff is
// removed from the environment before the stage proceeds.
func (l *Launcher) Resume(ctx context.Context, stage Stage) int {
	h, err := HandoffFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "daemonize: %v\n", err)
		return 1
	}
	clearHandoffEnv()

	l.PIDFile = NewPIDFile(h.PIDFile)
	l.LogFile = h.LogFile
	if h.EventsFile != "" {
		l.Events = NewEventLogger(h.EventsFile)
	}

	logger := log.WithLaunch(l.logger(), h.LaunchID).With(slog.String(log.StageKey, string(stage)))

	switch stage {
	case StageSession:
		if err := l.spawnDaemon(h); err != nil {
			logger.Error("failed to detach", log.Error(err))
			return 1
		}
		return 0
	case StageDaemon:
		return l.runDaemon(ctx, h, logger)
	default:
		logger.Error("not a re-executed stage")
		return 1
	}
}

// spawnDaemon completes the session leader's setup and re-executes once
// more without a new session, so the detached process is never a session
// leader and cannot acquire a controlling terminal.
func (l *Launcher) spawnDaemon(h Handoff) error {
	// Decodes the context sent by the controller and points stdin at
	// /dev/null; stdout and stderr are already the log file.
	if _, err := (&godaemon.Context{}).Reborn(); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStageSession, Cause: err}
	}

	exe, err := os.Executable()
	if err != nil {
		return &daemonerrors.LaunchError{Stage: launchStageSpawn, Cause: err}
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Args[0] = os.Args[0]
	cmd.Env = daemonEnv(os.Environ(), h)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStageSpawn, Path: exe, Cause: err}
	}
	return cmd.Process.Release()
}

func (l *Launcher) runDaemon(ctx context.Context, h Handoff, logger *slog.Logger) int {
	pid := os.Getpid()

	if err := l.claim(pid, h.LaunchID, os.Stderr); err != nil {
		if !errors.Is(err, ErrPIDFileExists) {
			logger.Error("failed to record pid", log.Error(err))
		}
		return 1
	}

	if err := prepareWorkDir(l.LogFile); err != nil {
		logger.Error("failed to prepare working directory", log.Error(err))
		return 1
	}

	// Registered before the task starts so an early SIGTERM still runs OnStop.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM)
	defer signal.Stop(sigs)

	logger.Info("daemon running", slog.String(log.PathKey, l.PIDFile.Path()))
	return l.serve(ctx, sigs, logger)
}

// claim records pid in the pid file unless another instance already did.
// A refusal is reported on out and returns ErrPIDFileExists.
func (l *Launcher) claim(pid int, launchID string, out io.Writer) error {
	path := l.PIDFile.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStagePIDFile, Path: path, Cause: err}
	}

	unlock, err := l.PIDFile.Lock()
	if err != nil {
		return &daemonerrors.LaunchError{Stage: launchStagePIDFile, Path: path, Cause: err}
	}
	defer unlock()

	if l.PIDFile.Exists() {
		existing, _ := l.PIDFile.Recall()
		fmt.Fprintf(out, MsgPIDFileExists, path)
		_ = l.Events.LogStartRefused(launchID, pid, existing)
		return fmt.Errorf("%w: %s", ErrPIDFileExists, path)
	}

	if err := l.PIDFile.Store(pid); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStagePIDFile, Path: path, Cause: err}
	}
	_ = l.Events.LogStart(launchID, pid)
	return nil
}

// prepareWorkDir makes the log directory the working directory and clears
// the umask.
func prepareWorkDir(logFile string) error {
	dir := filepath.Dir(logFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStageWorkDir, Path: dir, Cause: err}
	}
	if err := os.Chdir(dir); err != nil {
		return &daemonerrors.LaunchError{Stage: launchStageWorkDir, Path: dir, Cause: err}
	}
	unix.Umask(0)
	return nil
}

// serve runs the task until it returns or a signal arrives on sigs, and
// returns the process exit code. A signal cancels the task's context,
// runs OnStop and exits 0 without waiting for the task.
func (l *Launcher) serve(ctx context.Context, sigs <-chan os.Signal, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- l.runTask(ctx)
	}()

	select {
	case sig := <-sigs:
		logger.Info("received signal, stopping", slog.String("signal", sig.String()))
		cancel()
		if l.OnStop != nil {
			l.OnStop()
		}
		return 0
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("task failed", log.Error(err))
			return 1
		}
		logger.Info("task finished")
		return 0
	}
}

func (l *Launcher) runTask(ctx context.Context) (err error) {
	if l.Task == nil {
		return errors.New("no task configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return l.Task(ctx)
}

func (l *Launcher) eventsPath() string {
	if l.Events.Enabled() {
		return l.Events.path
	}
	return ""
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger == nil {
		return log.Discard()
	}
	return l.Logger
}
