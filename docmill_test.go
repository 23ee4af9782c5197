package docmill

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docmill/core"
)

func TestOpen(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "docmill")
		engine, err := Open(dataDir)
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		assert.NotNil(t, engine.Jobs())
		assert.NotNil(t, engine.Blobs())
		assert.NotNil(t, engine.backend)
		assert.NotNil(t, engine.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A file where the data directory should be.
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		engine, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("in memory", func(t *testing.T) {
		engine, err := Open("", WithInMemory())
		require.NoError(t, err)
		require.NotNil(t, engine)
		assert.NoError(t, engine.Close())
	})
}

func TestEngine_EndToEnd(t *testing.T) {
	engine, err := Open("", WithInMemory())
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()

	ref, err := engine.PutDocument(ctx, "notes.md", []byte("# Notes\n\nFirst paragraph.\n\nSecond paragraph.\n"))
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	job, err := engine.Submit(ctx, ref, core.JobOptions{
		Chunking: core.ChunkOptions{TargetSize: 400},
	}, "")
	require.NoError(t, err)

	var final *core.Job
	require.Eventually(t, func() bool {
		j, err := engine.Status(ctx, job.Id)
		if err != nil {
			return false
		}
		final = j
		return j.State.Terminal()
	}, 10*time.Second, 10*time.Millisecond)

	require.Equal(t, core.StateSucceeded, final.State)

	manifest, err := engine.Manifest(ctx, job.Id)
	require.NoError(t, err)
	assert.Greater(t, manifest.TotalChunks, 0)
	assert.NotEmpty(t, manifest.RawKey)

	chunks, err := engine.Chunks(ctx, manifest)
	require.NoError(t, err)
	require.Len(t, chunks, manifest.TotalChunks)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
}

func TestEngine_ManifestBeforeCompletion(t *testing.T) {
	engine, err := Open("", WithInMemory())
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()

	// A job record with no result reference yet.
	ref, err := engine.PutDocument(ctx, "pending.md", []byte("body"))
	require.NoError(t, err)
	job := &core.Job{
		Id:          core.JobFingerprint(ref, core.JobOptions{Chunking: core.ChunkOptions{TargetSize: 100}}),
		State:       core.StatePending,
		DocumentRef: ref,
		Options:     core.JobOptions{Chunking: core.ChunkOptions{TargetSize: 100}},
	}
	_, _, err = engine.Jobs().CreateOrGet(ctx, job)
	require.NoError(t, err)

	_, err = engine.Manifest(ctx, job.Id)
	assert.Error(t, err)
}
