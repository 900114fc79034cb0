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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tombee/daemonize/internal/commands/shared"
	"github.com/tombee/daemonize/internal/lifecycle"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running",
		Long: `Show whether the daemon is running.

Exit codes follow init script conventions:
  0  running
  1  pid file present but the process is gone
  3  not running`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rt)
		},
	}
}

func runStatus(rt *Runtime) error {
	cfg, err := rt.Resolve()
	if err != nil {
		return err
	}

	out := rt.out()
	pidFile := lifecycle.NewPIDFile(cfg.Daemon.PIDFile)

	if !pidFile.Exists() {
		fmt.Fprintln(out, shared.RenderWarn("not running"))
		fmt.Fprintln(out, shared.RenderField("pid file", pidFile.Path()+" (absent)"))
		return shared.NewSilentExit(shared.ExitNotRunning)
	}

	pid, ok := pidFile.Recall()
	if !ok {
		fmt.Fprintln(out, shared.RenderError("pid file does not contain a valid pid"))
		fmt.Fprintln(out, shared.RenderField("pid file", pidFile.Path()))
		return shared.NewSilentExit(shared.ExitDeadWithPIDFile)
	}

	info := lifecycle.GetProcessInfo(pid)
	if !info.Running {
		fmt.Fprintln(out, shared.RenderError(fmt.Sprintf("not running, but pid file records pid %d", pid)))
		fmt.Fprintln(out, shared.RenderField("pid file", pidFile.Path()))
		return shared.NewSilentExit(shared.ExitDeadWithPIDFile)
	}

	fmt.Fprintln(out, shared.RenderOK("running"))
	fmt.Fprintln(out, shared.RenderField("pid", strconv.Itoa(pid)))
	fmt.Fprintln(out, shared.RenderField("command", info.Command))
	fmt.Fprintln(out, shared.RenderField("pid file", pidFile.Path()))
	fmt.Fprintln(out, shared.RenderField("log file", cfg.Daemon.LogFile))
	return nil
}
