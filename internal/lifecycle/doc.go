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
Package lifecycle turns the current program into a detached daemon and
controls it from the command line.

It has three parts, leaves first.

# PID File

PIDFile records the pid of the running instance. Its presence is the only
record that a daemon is running; liveness is checked when stop signals it.

	pidFile := lifecycle.NewPIDFile("/var/run/worker.pid")
	if pid, ok := pidFile.Recall(); ok {
	    // pid file present and parseable
	}

Read-then-delete (stop) and check-then-write (daemon startup) are
serialized with an advisory lock on a sibling "<pid file>.lock" file.

# Launcher

Launcher performs the detach sequence. Go cannot fork a running runtime, so
every fork is a re-execution of the current executable; the stage is
carried in the environment:

	controller --Reborn(setsid, stdio -> log)--> session leader
	session leader --exec (no setsid), exit--> daemon
	daemon: claim pid file, chdir log dir, umask 0, trap SIGTERM, run task

The program's main must call Launcher.Resume when CurrentStage reports it
is running as one of the re-executed stages, before parsing any command.

# Controller

Controller dispatches start, stop and restart. Stop removes the pid file
before signaling, then sends SIGTERM to the daemon's whole process group,
falling back to the single pid when the group cannot be resolved.

	ctrl := &lifecycle.Controller{PIDFile: pidFile, Launcher: launcher, Out: os.Stdout}
	if err := ctrl.Dispatch("stop"); err != nil {
	    // signaling failed for a reason other than a dead process
	}
*/
package lifecycle
