package pipeline

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/docmill/core"
)

func TestLogMonitor(t *testing.T) {
	var buf bytes.Buffer
	monitor := &LogMonitor{
		Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	job := &core.Job{Id: 7, State: core.StateParsing}
	monitor.JobStarted(job)
	monitor.StageEntered(job.Id, core.StateChunking)
	monitor.AttemptFailed(job.Id, core.StateParsing, 2, errors.New("boom"))
	monitor.JobReclaimed(job.Id, core.StateStoring)
	monitor.JobFinished(&core.Job{Id: 7, State: core.StateSucceeded, ResultRef: "blobs/m.json"})

	out := buf.String()
	assert.Contains(t, out, "job started")
	assert.Contains(t, out, "stage entered")
	assert.Contains(t, out, "stage attempt failed")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, "reclaiming")
	assert.Contains(t, out, "job finished")
	assert.Contains(t, out, "result_ref=blobs/m.json")
}

func TestLogMonitorDefaultsLogger(t *testing.T) {
	// A zero-value LogMonitor must not panic; it falls back to the
	// process default logger.
	monitor := &LogMonitor{}
	monitor.StageEntered(1, core.StateParsing)
	monitor.JobFinished(&core.Job{Id: 1, State: core.StateFailed})
}
