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
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput []string
		wantEmpty  bool
	}{
		{
			name:      "nil error",
			err:       nil,
			wantCode:  ExitSuccess,
			wantEmpty: true,
		},
		{
			name:       "plain error",
			err:        errors.New("something broke"),
			wantCode:   ExitFailure,
			wantOutput: []string{"something broke"},
		},
		{
			name:      "silent exit",
			err:       NewSilentExit(ExitNotRunning),
			wantCode:  ExitNotRunning,
			wantEmpty: true,
		},
		{
			name:       "exit error with cause",
			err:        &ExitError{Code: 5, Message: "stop failed", Cause: errors.New("permission denied")},
			wantCode:   5,
			wantOutput: []string{"stop failed: permission denied"},
		},
		{
			name: "wrapped launch error prints suggestion",
			err: fmt.Errorf("start: %w", &daemonerrors.LaunchError{
				Stage: "redirect",
				Path:  "/var/log/w.log",
				Cause: errors.New("permission denied"),
			}),
			wantCode:   ExitFailure,
			wantOutput: []string{"daemon launch failed at redirect", "Suggestion:", "--pid-file/--log-file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			code := ExitCode(tt.err, &buf)

			if code != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", code, tt.wantCode)
			}
			if tt.wantEmpty && buf.Len() != 0 {
				t.Errorf("expected no output, got %q", buf.String())
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output %q missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ExitError{Code: 2, Message: "wrapped", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(ExitError, cause) = false, want true")
	}
}
