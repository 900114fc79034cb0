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

package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Lifecycle event names.
const (
	EventStart         = "start"
	EventStartRefused  = "start_refused"
	EventStop          = "stop"
	EventStalePID      = "stale_pid"
	EventGroupFallback = "group_fallback"
)

// LifecycleEvent is one line of the events file.
type LifecycleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	LaunchID  string    `json:"launch_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	PGID      int       `json:"pgid,omitempty"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EventLogger appends lifecycle events to a JSON lines file. The zero
// value, and a logger with an empty path, discard every event.
type EventLogger struct {
	path string
	now  func() time.Time
}

// NewEventLogger creates an event logger writing to path.
func NewEventLogger(path string) *EventLogger {
	return &EventLogger{path: path, now: time.Now}
}

// Enabled reports whether events are written anywhere.
func (l *EventLogger) Enabled() bool {
	return l != nil && l.path != ""
}

// LogStart records a daemon that claimed its pid file.
func (l *EventLogger) LogStart(launchID string, pid int) error {
	return l.writeEvent(LifecycleEvent{
		Event:    EventStart,
		LaunchID: launchID,
		PID:      pid,
		Success:  true,
		Message:  "Daemon claimed pid file",
	})
}

// LogStartRefused records a daemon that found another instance's pid file.
func (l *EventLogger) LogStartRefused(launchID string, pid, existing int) error {
	return l.writeEvent(LifecycleEvent{
		Event:    EventStartRefused,
		LaunchID: launchID,
		PID:      pid,
		Success:  false,
		Message:  fmt.Sprintf("Pid file already records pid %d", existing),
	})
}

// LogStop records the outcome of signaling a daemon.
func (l *EventLogger) LogStop(d Delivery, err error) error {
	event := LifecycleEvent{
		Event:   EventStop,
		PID:     d.PID,
		PGID:    d.PGID,
		Success: err == nil,
		Message: "SIGTERM sent to process group",
	}
	if d.Fallback {
		event.Message = "SIGTERM sent to process"
	}
	if err != nil {
		event.Error = err.Error()
	}
	return l.writeEvent(event)
}

// LogStalePID records a pid file whose process was gone or whose content
// was not a pid.
func (l *EventLogger) LogStalePID(pid int, reason string) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventStalePID,
		PID:     pid,
		Success: true,
		Message: fmt.Sprintf("Stale pid file removed: %s", reason),
	})
}

// LogGroupFallback records a stop that could only signal a single pid.
func (l *EventLogger) LogGroupFallback(d Delivery) error {
	event := LifecycleEvent{
		Event:   EventGroupFallback,
		PID:     d.PID,
		Success: true,
		Message: "Process group not resolved, signaling pid only",
	}
	if d.Cause != nil {
		event.Error = d.Cause.Error()
	}
	return l.writeEvent(event)
}

// writeEvent appends a lifecycle event to the events file.
func (l *EventLogger) writeEvent(event LifecycleEvent) error {
	if !l.Enabled() {
		return nil
	}

	now := l.now
	if now == nil {
		now = time.Now
	}
	event.Timestamp = now()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create events directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}
