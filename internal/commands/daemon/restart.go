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

package daemon

import (
	"github.com/spf13/cobra"

	"github.com/tombee/daemonize/internal/lifecycle"
)

// NewRestartCommand creates the restart command.
func NewRestartCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Stop the daemon, then start it again",
		Long: `Stop the daemon, then start it again.

This is equivalent to running stop followed by start. The new instance
is launched as soon as the old pid file is removed; it does not wait for
the old process to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.Dispatch(lifecycle.CommandRestart)
		},
	}
}
