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

package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	daemonerrors "github.com/tombee/daemonize/pkg/errors"
)

var (
	// ErrPIDFileExists is returned when a daemon refuses to start because
	// another instance already recorded its pid.
	ErrPIDFileExists = errors.New("pid file already exists")

	// ErrInvalidPID is returned when the pid file contains invalid data.
	ErrInvalidPID = errors.New("invalid pid in file")
)

// PIDFile stores the pid of a running daemon at a single path.
type PIDFile struct {
	path string
}

// NewPIDFile creates a PIDFile backed by path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Store writes pid as a decimal string, truncating any prior content.
// The parent directory is created if it does not exist.
func (p *PIDFile) Store(pid int) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return daemonerrors.Wrap(err, "failed to create pid file directory")
	}

	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return daemonerrors.Wrap(err, "failed to write pid file")
	}

	return nil
}

// Recall reads the stored pid. It reports false when the file is missing,
// unreadable or does not hold a positive integer; callers treat that as
// "no record", never as a fault.
func (p *PIDFile) Recall() (int, bool) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, false
	}

	pid, err := parsePID(data)
	if err != nil {
		return 0, false
	}

	return pid, true
}

// Remove deletes the pid file. Removing an absent file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return daemonerrors.Wrap(err, "failed to remove pid file")
	}
	return nil
}

// Exists reports whether a regular file is present at the path.
func (p *PIDFile) Exists() bool {
	info, err := os.Stat(p.path)
	return err == nil && info.Mode().IsRegular()
}

// Lock takes the advisory lock that guards the pid file against a
// concurrent start or stop. The lock file lives next to the pid file, so
// its directory must exist. The returned function releases the lock.
func (p *PIDFile) Lock() (func(), error) {
	fl := flock.New(p.lockPath())
	if err := fl.Lock(); err != nil {
		return nil, daemonerrors.Wrapf(err, "failed to lock %s", fl.Path())
	}
	return func() { _ = fl.Unlock() }, nil
}

func (p *PIDFile) lockPath() string {
	return p.path + ".lock"
}

// parsePID parses pid file content. Zero and negative values are rejected:
// signaling them would reach the caller's own process group or every
// process the caller may signal.
func parsePID(data []byte) (int, error) {
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, pidStr)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: pid must be positive, got %d", ErrInvalidPID, pid)
	}
	return pid, nil
}
