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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/tombee/daemonize/internal/log"
)

// Lifecycle commands.
const (
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandRestart = "restart"
)

// Messages printed to the invoking terminal.
const (
	MsgStarted        = "Daemon started."
	MsgStopped        = "Daemon stopped."
	MsgNoPIDFile      = "Pid file not found. Is the daemon started?"
	MsgNotRunning     = "Pid file found, but process was not running. The daemon may have died."
	MsgInvalidPID     = "Pid file found, but it does not contain a valid pid. Removed it."
	MsgGroupFallback  = "Cannot find process group id for pid %d. Killing %d only."
	MsgInvalidCommand = "Invalid command. Please specify start, stop or restart."
)

// Starter detaches the daemon. *Launcher satisfies it.
type Starter interface {
	Launch() (*Launched, error)
}

// Controller runs the start, stop and restart commands.
type Controller struct {
	Launcher Starter
	PIDFile  *PIDFile

	// Out receives the user-facing messages. Defaults to os.Stdout.
	Out io.Writer

	Logger  *slog.Logger
	Events  *EventLogger
	Metrics *Metrics

	// MetricsTextfile, when set, is rewritten after every command.
	MetricsTextfile string
}

// Dispatch runs the named command. An unknown or empty command prints
// usage guidance and succeeds.
func (c *Controller) Dispatch(command string) error {
	switch command {
	case CommandStart:
		return c.Start()
	case CommandStop:
		return c.Stop()
	case CommandRestart:
		return c.Restart()
	default:
		c.println(MsgInvalidCommand)
		return nil
	}
}

// Start launches the daemon and returns once the first re-exec succeeded.
// It does not wait for the detached process to claim the pid file.
func (c *Controller) Start() error {
	launched, err := c.Launcher.Launch()
	if err != nil {
		c.record(CommandStart, OutcomeError)
		return err
	}

	c.logger().Debug("launch started",
		slog.String(log.CommandKey, CommandStart),
		slog.String(log.LaunchIDKey, launched.LaunchID),
		slog.Int(log.PIDKey, launched.PID))
	c.println(MsgStarted)
	c.record(CommandStart, OutcomeOK)
	return nil
}

// Stop removes the pid file and sends SIGTERM to the recorded process group.
//
// A missing pid file, a pid file that does not hold a pid, and a process
// that no longer exists are informational and return nil.
func (c *Controller) Stop() error {
	logger := c.logger().With(slog.String(log.CommandKey, CommandStop))

	// Checked before locking so a stop without a pid file creates nothing.
	if !c.PIDFile.Exists() {
		c.println(MsgNoPIDFile)
		c.record(CommandStop, OutcomeNoop)
		return nil
	}

	pid, found, err := c.takePID()
	if err != nil {
		c.record(CommandStop, OutcomeError)
		return err
	}
	if !found {
		c.println(MsgNoPIDFile)
		c.record(CommandStop, OutcomeNoop)
		return nil
	}
	if pid == 0 {
		c.println(MsgInvalidPID)
		_ = c.Events.LogStalePID(0, "invalid pid")
		c.record(CommandStop, OutcomeStale)
		return nil
	}

	d, err := SignalGroup(pid, unix.SIGTERM)
	if d.Fallback {
		logger.Warn("process group not resolved, signaling pid only",
			slog.Int(log.PIDKey, pid), log.Error(d.Cause))
		c.printf(MsgGroupFallback+"\n", pid, pid)
		_ = c.Events.LogGroupFallback(d)
	}

	switch {
	case errors.Is(err, ErrProcessNotRunning):
		c.println(MsgNotRunning)
		_ = c.Events.LogStalePID(pid, "process not running")
		c.record(CommandStop, OutcomeStale)
		return nil
	case err != nil:
		_ = c.Events.LogStop(d, err)
		c.record(CommandStop, OutcomeError)
		return err
	}

	logger.Debug("sent SIGTERM", slog.Int(log.PIDKey, pid), slog.Int(log.PGIDKey, d.PGID))
	if d.Group() {
		c.println(MsgStopped)
	}
	_ = c.Events.LogStop(d, nil)
	if c.Metrics != nil {
		c.Metrics.RecordSignal(d)
	}
	c.record(CommandStop, OutcomeOK)
	return nil
}

// takePID reads and removes the pid file under its lock. found is false
// when the file vanished before the lock was taken. A file that does not
// hold a pid is removed and reported as pid 0.
func (c *Controller) takePID() (pid int, found bool, err error) {
	unlock, err := c.PIDFile.Lock()
	if err != nil {
		return 0, false, err
	}
	defer unlock()

	if !c.PIDFile.Exists() {
		return 0, false, nil
	}

	pid, ok := c.PIDFile.Recall()
	if err := c.PIDFile.Remove(); err != nil {
		return 0, true, err
	}
	if !ok {
		return 0, true, nil
	}
	return pid, true, nil
}

// Restart stops the daemon and starts it again. There is no wait between
// the two; the new instance only requires the old pid file to be gone.
func (c *Controller) Restart() error {
	if err := c.Stop(); err != nil {
		return err
	}
	return c.Start()
}

func (c *Controller) record(command, outcome string) {
	if c.Metrics == nil {
		return
	}
	c.Metrics.RecordCommand(command, outcome)
	if err := c.Metrics.WriteTextfile(c.MetricsTextfile); err != nil {
		c.logger().Warn("failed to write metrics textfile",
			slog.String(log.PathKey, c.MetricsTextfile), log.Error(err))
	}
}

func (c *Controller) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Controller) println(msg string) {
	fmt.Fprintln(c.out(), msg)
}

func (c *Controller) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return log.Discard()
	}
	return c.Logger
}
