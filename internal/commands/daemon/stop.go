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

// NewStopCommand creates the stop command.
func NewStopCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		Long: `Stop the daemon.

The pid file is removed first, then SIGTERM is sent to the daemon's
process group so processes it spawned stop too. A missing pid file or a
process that already exited is reported and is not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.Dispatch(lifecycle.CommandStop)
		},
	}
}
