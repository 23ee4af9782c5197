// Copyright 2025 Poiesic Systems
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


package pipeline

import (
	"log/slog"

	"github.com/poiesic/docmill/core"
)

// Monitor provides hooks to observe job progress.
// Implement this interface to track stage transitions and retries.
type Monitor interface {
	JobStarted(job *core.Job)
	StageEntered(id core.ID, state core.JobState)
	AttemptFailed(id core.ID, state core.JobState, attempt int, err error)
	JobReclaimed(id core.ID, state core.JobState)
	JobFinished(job *core.Job)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) JobStarted(_ *core.Job)                                   {}
func (n *noopMonitor) StageEntered(_ core.ID, _ core.JobState)                  {}
func (n *noopMonitor) AttemptFailed(_ core.ID, _ core.JobState, _ int, _ error) {}
func (n *noopMonitor) JobReclaimed(_ core.ID, _ core.JobState)                  {}
func (n *noopMonitor) JobFinished(_ *core.Job)                                  {}

// LogMonitor logs job progress through slog.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

func (m *LogMonitor) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *LogMonitor) JobStarted(job *core.Job) {
	m.logger().Info("job started", "job_id", uint64(job.Id), "state", job.State.String())
}

func (m *LogMonitor) StageEntered(id core.ID, state core.JobState) {
	m.logger().Debug("stage entered", "job_id", uint64(id), "state", state.String())
}

func (m *LogMonitor) AttemptFailed(id core.ID, state core.JobState, attempt int, err error) {
	m.logger().Warn("stage attempt failed",
		"job_id", uint64(id), "state", state.String(), "attempt", attempt, "error", err)
}

func (m *LogMonitor) JobReclaimed(id core.ID, state core.JobState) {
	m.logger().Warn("job lease expired, reclaiming", "job_id", uint64(id), "state", state.String())
}

func (m *LogMonitor) JobFinished(job *core.Job) {
	m.logger().Info("job finished",
		"job_id", uint64(job.Id), "state", job.State.String(), "result_ref", job.ResultRef)
}
