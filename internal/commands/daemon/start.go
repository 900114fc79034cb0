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

// NewStartCommand creates the start command.
func NewStartCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		Long: `Start the daemon in the background.

The process detaches from the terminal, records its pid in the pid file
and sends its output to the log file. The command returns as soon as the
background process has been spawned; if another instance already holds
the pid file, the new instance reports that in the log file and exits.`,
		Example: `  # Start with the default pid and log files
  ` + rt.Name + ` start

  # Start with explicit locations
  ` + rt.Name + ` start --pid-file /tmp/w.pid --log-file /tmp/w.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.Dispatch(lifecycle.CommandStart)
		},
	}
}
