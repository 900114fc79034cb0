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

package lifecycle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/tombee/daemonize/internal/log"
)

type fakeStarter struct {
	calls int
	err   error
	// onLaunch runs before returning, e.g. to observe pid file state.
	onLaunch func()
}

func (f *fakeStarter) Launch() (*Launched, error) {
	f.calls++
	if f.onLaunch != nil {
		f.onLaunch()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Launched{PID: 1000 + f.calls, LaunchID: "launch"}, nil
}

func newTestController(t *testing.T) (*Controller, *bytes.Buffer, *fakeStarter) {
	t.Helper()
	var out bytes.Buffer
	starter := &fakeStarter{}
	return &Controller{
		Launcher: starter,
		PIDFile:  NewPIDFile(filepath.Join(t.TempDir(), "w.pid")),
		Out:      &out,
	}, &out, starter
}

func writePID(t *testing.T, p *PIDFile, content string) {
	t.Helper()
	if err := os.WriteFile(p.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestController_Dispatch(t *testing.T) {
	tests := []struct {
		command    string
		wantOutput string
		wantStarts int
	}{
		{command: "start", wantOutput: MsgStarted + "\n", wantStarts: 1},
		{command: "stop", wantOutput: MsgNoPIDFile + "\n"},
		{command: "restart", wantOutput: MsgNoPIDFile + "\n" + MsgStarted + "\n", wantStarts: 1},
		{command: "", wantOutput: MsgInvalidCommand + "\n"},
		{command: "reload", wantOutput: MsgInvalidCommand + "\n"},
		{command: "START", wantOutput: MsgInvalidCommand + "\n"},
	}

	for _, tt := range tests {
		t.Run("command "+tt.command, func(t *testing.T) {
			c, out, starter := newTestController(t)

			if err := c.Dispatch(tt.command); err != nil {
				t.Fatalf("Dispatch(%q) error = %v", tt.command, err)
			}
			if out.String() != tt.wantOutput {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOutput)
			}
			if starter.calls != tt.wantStarts {
				t.Errorf("launches = %d, want %d", starter.calls, tt.wantStarts)
			}
		})
	}
}

func TestController_StartError(t *testing.T) {
	c, out, starter := newTestController(t)
	starter.err = errors.New("spawn failed")

	if err := c.Start(); err == nil {
		t.Fatal("Start() error = nil, want launch error")
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing printed on failure", out.String())
	}
}

func TestController_StopWithoutPIDFile(t *testing.T) {
	c, out, _ := newTestController(t)
	dir := filepath.Dir(c.PIDFile.Path())

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if out.String() != MsgNoPIDFile+"\n" {
		t.Errorf("output = %q", out.String())
	}
	if entries := dirEntries(t, dir); len(entries) != 0 {
		t.Errorf("Stop() without pid file created %v", entries)
	}
}

func TestController_StopSignalsGroup(t *testing.T) {
	c, out, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	var calls []killCall
	stubSyscalls(t,
		func(pid int) (int, error) {
			if c.PIDFile.Exists() {
				t.Error("pid file must be removed before signaling")
			}
			return 4240, nil
		},
		100,
		recordKills(&calls, nil))

	c.Metrics = NewMetrics("w")
	c.MetricsTextfile = filepath.Join(t.TempDir(), "w.prom")

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if out.String() != MsgStopped+"\n" {
		t.Errorf("output = %q, want %q", out.String(), MsgStopped)
	}
	if len(calls) != 1 || calls[0].pid != -4240 || calls[0].sig != unix.SIGTERM {
		t.Errorf("kill calls = %+v, want SIGTERM to -4240", calls)
	}
	if c.PIDFile.Exists() {
		t.Error("pid file still exists after Stop()")
	}

	data, err := os.ReadFile(c.MetricsTextfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `daemonize_signals_sent_total{daemon="w",target="group"} 1`) {
		t.Errorf("textfile missing group signal:\n%s", data)
	}
}

func TestController_StopDeadProcess(t *testing.T) {
	c, out, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")
	eventsPath := filepath.Join(t.TempDir(), "w.events")
	c.Events = NewEventLogger(eventsPath)

	var calls []killCall
	stubSyscalls(t,
		func(int) (int, error) { return 0, unix.ESRCH },
		100,
		recordKills(&calls, nil))

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v, want nil", err)
	}
	if out.String() != MsgNotRunning+"\n" {
		t.Errorf("output = %q, want %q", out.String(), MsgNotRunning)
	}
	if c.PIDFile.Exists() {
		t.Error("stale pid file must be removed")
	}
	if len(calls) != 0 {
		t.Errorf("kill calls = %+v, want none", calls)
	}

	events := readEvents(t, eventsPath)
	if len(events) != 1 || events[0].Event != EventStalePID {
		t.Errorf("events = %+v, want one stale_pid", events)
	}
}

func TestController_StopGroupFallback(t *testing.T) {
	c, out, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	var calls []killCall
	stubSyscalls(t,
		func(int) (int, error) { return 0, unix.EPERM },
		100,
		recordKills(&calls, nil))

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	want := "Cannot find process group id for pid 4242. Killing 4242 only.\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if len(calls) != 1 || calls[0].pid != 4242 {
		t.Errorf("kill calls = %+v, want SIGTERM to 4242", calls)
	}
}

func TestController_StopOwnGroupFallsBack(t *testing.T) {
	c, out, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	var calls []killCall
	stubSyscalls(t,
		func(int) (int, error) { return 100, nil },
		100,
		recordKills(&calls, nil))

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "Cannot find process group id for pid 4242.") {
		t.Errorf("output = %q, want group fallback message", out.String())
	}
	for _, call := range calls {
		if call.pid < 0 {
			t.Errorf("signaled own process group %d", call.pid)
		}
	}
}

func TestController_StopInvalidPID(t *testing.T) {
	for _, content := range []string{"garbage", "0", "-1", ""} {
		t.Run(content, func(t *testing.T) {
			c, out, _ := newTestController(t)
			writePID(t, c.PIDFile, content)

			var calls []killCall
			stubSyscalls(t,
				func(int) (int, error) { return 1, nil },
				100,
				recordKills(&calls, nil))

			if err := c.Stop(); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}
			if out.String() != MsgInvalidPID+"\n" {
				t.Errorf("output = %q, want %q", out.String(), MsgInvalidPID)
			}
			if c.PIDFile.Exists() {
				t.Error("invalid pid file must be removed")
			}
			if len(calls) != 0 {
				t.Errorf("kill calls = %+v, want none", calls)
			}
		})
	}
}

func TestController_StopKillError(t *testing.T) {
	c, _, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	stubSyscalls(t,
		func(int) (int, error) { return 4240, nil },
		100,
		func(int, unix.Signal) error { return unix.EPERM })

	err := c.Stop()
	if !errors.Is(err, unix.EPERM) {
		t.Fatalf("Stop() error = %v, want EPERM", err)
	}
	if !strings.Contains(err.Error(), "to process group 4240: ") {
		t.Errorf("Stop() error = %q, want the group in the message", err)
	}
}

func TestController_RestartOrdersStopBeforeStart(t *testing.T) {
	c, out, starter := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	stubSyscalls(t,
		func(int) (int, error) { return 4240, nil },
		100,
		func(int, unix.Signal) error { return nil })

	starter.onLaunch = func() {
		if c.PIDFile.Exists() {
			t.Error("start ran before stop removed the pid file")
		}
	}

	if err := c.Restart(); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if out.String() != MsgStopped+"\n"+MsgStarted+"\n" {
		t.Errorf("output = %q", out.String())
	}
	if starter.calls != 1 {
		t.Errorf("launches = %d, want 1", starter.calls)
	}
}

func TestController_RestartStopsOnStopError(t *testing.T) {
	c, _, starter := newTestController(t)
	writePID(t, c.PIDFile, "4242")

	stubSyscalls(t,
		func(int) (int, error) { return 4240, nil },
		100,
		func(int, unix.Signal) error { return unix.EPERM })

	if err := c.Restart(); err == nil {
		t.Fatal("Restart() error = nil, want stop error")
	}
	if starter.calls != 0 {
		t.Errorf("launches = %d, want 0 after failed stop", starter.calls)
	}
}

func TestController_DiagnosticsAreDebug(t *testing.T) {
	tests := []struct {
		level    string
		wantLogs bool
	}{
		{level: "info", wantLogs: false},
		{level: "debug", wantLogs: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c, out, _ := newTestController(t)
			var diag bytes.Buffer
			c.Logger = log.New(&log.Config{Level: tt.level, Format: log.FormatText, Output: &diag})
			stubSyscalls(t,
				func(pid int) (int, error) { return 4240, nil },
				100,
				recordKills(new([]killCall), nil))

			if err := c.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			writePID(t, c.PIDFile, "4242")
			if err := c.Stop(); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}

			if out.String() != MsgStarted+"\n"+MsgStopped+"\n" {
				t.Errorf("output = %q, want only the user messages", out.String())
			}
			for _, msg := range []string{"launch started", "sent SIGTERM"} {
				if got := strings.Contains(diag.String(), msg); got != tt.wantLogs {
					t.Errorf("%q logged = %v at level %s, want %v", msg, got, tt.level, tt.wantLogs)
				}
			}
		})
	}
}

func TestController_StopLeavesOnlyLockFile(t *testing.T) {
	c, _, _ := newTestController(t)
	writePID(t, c.PIDFile, "4242")
	stubSyscalls(t,
		func(pid int) (int, error) { return 4240, nil },
		100,
		recordKills(new([]killCall), nil))

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// The lock file is kept so every process locks the same inode.
	got := dirEntries(t, filepath.Dir(c.PIDFile.Path()))
	if len(got) != 1 || got[0] != "w.pid.lock" {
		t.Errorf("directory entries = %v, want only w.pid.lock", got)
	}
}
