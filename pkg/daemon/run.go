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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/tombee/daemonize/internal/cli"
	daemoncmd "github.com/tombee/daemonize/internal/commands/daemon"
	"github.com/tombee/daemonize/internal/lifecycle"
	"github.com/tombee/daemonize/internal/log"
)

// Run executes the lifecycle command in args and returns the process exit
// code. Inside a re-executed process it continues the detach sequence
// instead, and for the background process only returns once the daemon is
// done.
func Run(ctx context.Context, spec Spec, args []string) int {
	if spec.Task == nil {
		fmt.Fprintln(os.Stderr, "daemon: Spec.Task is required")
		return 1
	}

	if stage := lifecycle.CurrentStage(); stage != lifecycle.StageController {
		launcher := &lifecycle.Launcher{
			Task:   spec.Task,
			OnStop: spec.OnStop,
			Logger: log.WithComponent(log.New(log.FromEnv()), "daemonize"),
		}
		return launcher.Resume(ctx, stage)
	}

	rt := &daemoncmd.Runtime{
		Name:   spec.name(),
		Base:   spec.baseConfig(),
		Task:   spec.Task,
		OnStop: spec.OnStop,
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
	return cli.Execute(ctx, rt, args)
}

// Main runs spec with the process arguments and exits.
func Main(spec Spec) {
	ctx := context.Background()
	if lifecycle.CurrentStage() == lifecycle.StageController {
		// Interrupts end "logs --follow"; the daemon handles SIGTERM itself.
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	code := Run(ctx, spec, os.Args[1:])
	if code != 0 {
		os.Exit(code)
	}
}
