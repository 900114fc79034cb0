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
)

// AddCommands registers every lifecycle command on root.
func AddCommands(root *cobra.Command, rt *Runtime) {
	root.AddCommand(NewStartCommand(rt))
	root.AddCommand(NewStopCommand(rt))
	root.AddCommand(NewRestartCommand(rt))
	root.AddCommand(NewStatusCommand(rt))
	root.AddCommand(NewLogsCommand(rt))
}
