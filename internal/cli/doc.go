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

/*

Package cli provides the root command of a daemonized program.

The root command accepts the lifecycle command either as a subcommand or
as a bare positional argument, so both of these work:

	worker start
	worker --pid-file /tmp/w.pid stop

Anything that is not a known command prints usage guidance and exits 0.

# Command Tree

	<name>
	├── start     Start the daemon in the background
	├── stop      Stop the daemon
	├── restart   Stop, then start
	├── status    Show whether the daemon is running
	├── logs      Print or follow the log file
	└── help      Show help

# Global Flags

	--pid-file   Override the pid file location
	--log-file   Override the log file location
	--config     YAML config file
	--verbose    Debug logging of controller diagnostics

# Exit Codes

Errors are rendered by shared.ExitCode, which also prints the suggestion
of any user-visible error in the chain.
*/
package cli
