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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tombee/daemonize/internal/commands/shared"
)

type logsOptions struct {
	lines  int
	follow bool
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rt *Runtime) *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the daemon log file",
		Long: `Print the end of the daemon log file.

With --follow, keep printing lines as the daemon writes them until
interrupted or until the log file is removed or renamed.`,
		Example: `  # Last 50 lines
  ` + rt.Name + ` logs -n 50

  # Follow output
  ` + rt.Name + ` logs --follow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd.Context(), rt, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 10, "Number of lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output")

	return cmd
}

func runLogs(ctx context.Context, rt *Runtime, opts logsOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := rt.Resolve()
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.Daemon.LogFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &shared.ExitError{
				Code:    shared.ExitFailure,
				Message: fmt.Sprintf("log file %s does not exist; has the daemon been started?", cfg.Daemon.LogFile),
			}
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	out := rt.out()
	lines, err := tailLines(f, opts.lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if !opts.follow {
		return nil
	}
	// The reader is at end of file; follow from there.
	return followFile(ctx, f, out)
}

// tailLines reads r to the end and returns its last n lines.
func tailLines(r io.Reader, n int) ([]string, error) {
	if n <= 0 {
		_, err := io.Copy(io.Discard, r)
		return nil, err
	}

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[1:], scanner.Text())
			continue
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return ring, nil
}

// followFile copies data appended to f into out until ctx is done or the
// file is removed or renamed.
func followFile(ctx context.Context, f *os.File, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.Name()); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				if _, err := io.Copy(out, f); err != nil {
					return fmt.Errorf("failed to read log file: %w", err)
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}
