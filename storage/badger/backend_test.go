package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend(t *testing.T) {
	t.Run("creates directory if missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "db")
		backend, err := OpenBackend(dir, false)
		require.NoError(t, err)
		defer backend.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects a file path", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := OpenBackend(file, false)
		assert.Error(t, err)
	})

	t.Run("in-memory backend", func(t *testing.T) {
		backend, err := OpenBackend("", true)
		require.NoError(t, err)
		assert.False(t, backend.IsClosed())
		require.NoError(t, backend.Close())
		assert.True(t, backend.IsClosed())
	})
}
