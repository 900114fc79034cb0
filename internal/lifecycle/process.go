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

	"golang.org/x/sys/unix"

	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

var (
	// ErrProcessNotRunning is returned when the process does not exist.
	ErrProcessNotRunning = errors.New("process not running")

	// ErrOwnProcessGroup is returned when a pid resolves to the caller's own
	// process group, which must never be signaled as a whole.
	ErrOwnProcessGroup = errors.New("pid belongs to the caller's process group")
)

// Syscall seams, replaced in tests.
var (
	getpgid = unix.Getpgid
	getpgrp = unix.Getpgrp
	kill    = unix.Kill
)

// ProcessInfo contains information about a recorded process.
type ProcessInfo struct {
	PID     int
	Running bool
	Command string
}

// Delivery describes how a signal reached its target.
type Delivery struct {
	PID  int
	PGID int

	// Fallback is set when the group could not be resolved and only PID
	// was signaled. Cause holds the resolution failure.
	Fallback bool
	Cause    error
}

// Group reports whether the whole process group was signaled.
func (d Delivery) Group() bool {
	return !d.Fallback
}

// IsProcessRunning checks if a process with the given pid exists.
// A process owned by another user still counts as running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// SignalGroup sends sig to the process group of pid.
//
// When the process does not exist ErrProcessNotRunning is returned. When
// the group cannot be resolved for any other reason, or resolves to the
// caller's own group, only pid is signaled and the returned Delivery has
// Fallback set.
func SignalGroup(pid int, sig unix.Signal) (Delivery, error) {
	d := Delivery{PID: pid}
	if pid <= 0 {
		return d, fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}

	pgid, err := getpgid(pid)
	switch {
	case errors.Is(err, unix.ESRCH):
		return d, ErrProcessNotRunning
	case err != nil:
		d.Fallback = true
		d.Cause = err
	case pgid == getpgrp():
		d.Fallback = true
		d.Cause = ErrOwnProcessGroup
	default:
		d.PGID = pgid
	}

	if d.Fallback {
		return d, signalOne(pid, sig)
	}

	if err := kill(-pgid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return d, ErrProcessNotRunning
		}
		return d, daemonerrors.Wrapf(err, "failed to send %v to process group %d", sig, pgid)
	}
	return d, nil
}

func signalOne(pid int, sig unix.Signal) error {
	if err := kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessNotRunning
		}
		return daemonerrors.Wrapf(err, "failed to send %v to process %d", sig, pid)
	}
	return nil
}

// GetProcessInfo returns information about the process with the given pid.
func GetProcessInfo(pid int) *ProcessInfo {
	info := &ProcessInfo{
		PID:     pid,
		Running: IsProcessRunning(pid),
	}

	if info.Running {
		cmd, err := getProcessCommand(pid)
		if err != nil {
			// Process exists but its command line is not readable.
			info.Command = "<unknown>"
		} else {
			info.Command = cmd
		}
	}

	return info
}
