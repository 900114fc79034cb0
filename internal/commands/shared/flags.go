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
	"github.com/spf13/pflag"
)

// Flags holds the global flag values shared by every lifecycle command.
type Flags struct {
	Verbose bool
	Config  string
	PIDFile string
	LogFile string
}

// RegisterFlags binds f to the persistent flag set of the root command.
func RegisterFlags(fs *pflag.FlagSet, f *Flags) {
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose output")
	fs.StringVar(&f.Config, "config", "", "Path to a YAML config file")
	fs.StringVar(&f.PIDFile, "pid-file", "", "Override the pid file location")
	fs.StringVar(&f.LogFile, "log-file", "", "Override the log file location")
}
