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

package daemon

import (
	"context"
	"os"
	"path/filepath"

	"github.com/tombee/daemonize/internal/config"
)

// Spec describes a daemon.
type Spec struct {
	// Name identifies the daemon. Defaults to the underscored base name of
	// the executable.
	Name string

	// PIDFile defaults to /var/run/<Name>.pid.
	PIDFile string

	// LogFile defaults to /var/log/<Name>.log.
	LogFile string

	// Task is the background work, invoked after the process has detached.
	// Its context is cancelled when the daemon receives SIGTERM.
	Task func(ctx context.Context) error

	// OnStop, if set, runs when the daemon receives SIGTERM. It must not
	// block indefinitely; the process exits when it returns.
	OnStop func()
}

func (s Spec) name() string {
	if s.Name != "" {
		return s.Name
	}
	return Underscore(filepath.Base(os.Args[0]))
}

// baseConfig returns the defaults for s with its own paths applied.
func (s Spec) baseConfig() *config.Config {
	cfg := config.Default(s.name())
	if s.PIDFile != "" {
		cfg.Daemon.PIDFile = s.PIDFile
	}
	if s.LogFile != "" {
		cfg.Daemon.LogFile = s.LogFile
	}
	return cfg
}
