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

package shared

import (
	"errors"
	"fmt"
	"io"

	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

// Exit codes. The status command follows the LSB init script conventions.
const (
	ExitSuccess = 0
	ExitFailure = 1

	// ExitDeadWithPIDFile means the pid file exists but its process is gone.
	ExitDeadWithPIDFile = 1

	// ExitNotRunning means no pid file exists.
	ExitNotRunning = 3
)

// ExitError is an error with a specific process exit code.
// An empty Message prints nothing; the command already reported.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewSilentExit returns an ExitError that only sets the exit code.
func NewSilentExit(code int) *ExitError {
	return &ExitError{Code: code}
}

// ExitCode reports err on w and returns the exit code for it.
func ExitCode(err error, w io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	code := ExitFailure
	msg := err.Error()

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		msg = exitErr.Error()
	}

	if msg != "" {
		fmt.Fprintln(w, RenderError(msg))
		if suggestion := daemonerrors.Suggestion(err); suggestion != "" {
			fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
		}
	}

	return code
}
