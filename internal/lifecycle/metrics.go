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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes used as metric labels.
const (
	OutcomeOK      = "ok"
	OutcomeNoop    = "noop"
	OutcomeStale   = "stale"
	OutcomeRefused = "refused"
	OutcomeError   = "error"
)

// Signal targets used as metric labels.
const (
	TargetGroup   = "group"
	TargetProcess = "process"
)

// Metrics counts lifecycle commands for the node exporter textfile
// collector. Each Metrics owns its registry so the written file holds only
// lifecycle series.
type Metrics struct {
	registry *prometheus.Registry

	commands    *prometheus.CounterVec
	signals     *prometheus.CounterVec
	lastCommand prometheus.Gauge
	now         func() time.Time
}

// NewMetrics creates lifecycle metrics labeled with the daemon name.
func NewMetrics(daemonName string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"daemon": daemonName}

	return &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "daemonize_commands_total",
				Help:        "Lifecycle commands handled, by command and outcome",
				ConstLabels: constLabels,
			},
			[]string{"command", "outcome"},
		),
		signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "daemonize_signals_sent_total",
				Help:        "SIGTERM deliveries by target",
				ConstLabels: constLabels,
			},
			[]string{"target"},
		),
		lastCommand: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "daemonize_last_command_timestamp_seconds",
			Help:        "Unix time of the last lifecycle command",
			ConstLabels: constLabels,
		}),
		now: time.Now,
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCommand counts one handled command.
func (m *Metrics) RecordCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.lastCommand.Set(float64(m.now().Unix()))
}

// RecordSignal counts one delivered SIGTERM.
func (m *Metrics) RecordSignal(d Delivery) {
	if m == nil {
		return
	}
	target := TargetGroup
	if d.Fallback {
		target = TargetProcess
	}
	m.signals.WithLabelValues(target).Inc()
}

// WriteTextfile writes the current values to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
