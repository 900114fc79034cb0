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

// Command hellod is a minimal daemon: it prints a greeting to its log file
// every few seconds until stopped.
//
//	hellod --pid-file /tmp/hellod.pid --log-file /tmp/hellod.log start
//	hellod --pid-file /tmp/hellod.pid --log-file /tmp/hellod.log stop
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tombee/daemonize/pkg/daemon"
)

func main() {
	daemon.Main(daemon.Spec{
		Name: "hellod",
		Task: greet,
		OnStop: func() {
			fmt.Println("goodbye")
		},
	})
}

func greet(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		fmt.Printf("hello at %s\n", time.Now().Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
