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

package errors

import (
	"fmt"
)

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "daemon.pid_file")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config error: %s", e.Reason)
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string {
	return e.Error()
}

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	if e.Key == "" {
		return ""
	}
	return fmt.Sprintf("Check the %q setting in your config file or the matching command-line flag", e.Key)
}

// LaunchError represents a failure while detaching the daemon process.
// Stage names the step of the detach sequence that failed
// (e.g., "spawn", "session", "pid_file", "redirect").
type LaunchError struct {
	// Stage is the detach step that failed
	Stage string

	// Path is the file involved, if any (pid file or log file)
	Path string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("daemon launch failed at %s", e.Stage)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *LaunchError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *LaunchError) UserMessage() string {
	return e.Error()
}

// Suggestion implements UserVisibleError.
func (e *LaunchError) Suggestion() string {
	switch e.Stage {
	case "pid_file", "redirect":
		return "Make sure the pid and log file directories are writable by this user, or pass --pid-file/--log-file"
	default:
		return ""
	}
}
