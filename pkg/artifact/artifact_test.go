package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArtifactCreatesPartitionedLayout(t *testing.T) {
	root := t.TempDir()
	store := New(root, 0)

	dir, err := store.WriteArtifact("node-0", KindRuntime, time.Now(), ".ini", []byte("k=v\n"), "")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "runtime_error.ini"))
	assert.Contains(t, dir, filepath.Join("node-0", "runtime_error"))
}

func TestWriteArtifactCopiesPanicLog(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, "node-0.log")
	require.NoError(t, os.WriteFile(logPath, []byte("panic: boom\n"), 0o644))

	store := New(root, 0)
	dir, err := store.WriteArtifact("node-0", KindPanic, time.Now(), ".yaml", []byte("a: 1\n"), logPath)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "node-0.log"))
}

func TestKeepLastNRetention(t *testing.T) {
	root := t.TempDir()
	store := New(root, 2)

	for i := 0; i < 5; i++ {
		_, err := store.WriteArtifact("node-0", KindStart, time.Now().Add(time.Duration(i)*time.Second), ".toml", []byte("x = 1\n"), "")
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "node-0", string(KindStart)))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
