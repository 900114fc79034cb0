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

Package daemon turns a Go program into a start/stop/restart controllable
background daemon.

A program describes its background work with a Spec and hands control to
Main:

	func main() {
	    daemon.Main(daemon.Spec{
	        Name: "worker",
	        Task: func(ctx context.Context) error {
	            fmt.Println("hello")
	            <-ctx.Done()
	            return nil
	        },
	    })
	}

Running "worker start" detaches the process, records its pid in
/var/run/worker.pid and appends its output to /var/log/worker.log.
"worker stop" sends SIGTERM to the daemon's process group; the Task's
context is cancelled and OnStop runs before the process exits.

Main re-executes the program to detach it, so it must be called early in
main, before the program does anything it should not repeat in the
background process.
*/
package daemon
