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

package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	daemoncmd "github.com/tombee/daemonize/internal/commands/daemon"
	"github.com/tombee/daemonize/internal/commands/shared"
)

// NewRootCommand creates the root Cobra command for the program described
// by rt.
func NewRootCommand(rt *daemoncmd.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   rt.Name + " [start|stop|restart]",
		Short: "Run " + rt.Name + " as a background daemon",
		Long: `Run ` + rt.Name + ` as a background daemon.

'start' detaches the process and records its pid, 'stop' sends SIGTERM to
the recorded process group, and 'restart' does both in order.`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true, // Don't show usage on errors
		SilenceErrors:     true, // We handle errors ourselves for proper exit codes
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := ""
			if len(args) > 0 {
				command = args[0]
			}
			return rt.Dispatch(command)
		},
	}

	shared.RegisterFlags(cmd.PersistentFlags(), &rt.Flags)
	daemoncmd.AddCommands(cmd, rt)

	if rt.Out != nil {
		cmd.SetOut(rt.Out)
	}
	if rt.Err != nil {
		cmd.SetErr(rt.Err)
	}

	return cmd
}

// Execute runs the command line args and returns the process exit code.
func Execute(ctx context.Context, rt *daemoncmd.Runtime, args []string) int {
	if args == nil {
		// Cobra falls back to os.Args on nil.
		args = []string{}
	}

	cmd := NewRootCommand(rt)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)

	errOut := rt.Err
	if errOut == nil {
		errOut = os.Stderr
	}
	return shared.ExitCode(err, errOut)
}
