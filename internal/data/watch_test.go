package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "demo.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(watched, []byte("version: 1\n"), 0o644))

	w, err := WatchFiles([]string{watched}, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("version: 1\nentities: []\n"), 0o644))

	select {
	case got := <-w.Changes():
		assert.Equal(t, watched, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatchFilesMissingDir(t *testing.T) {
	_, err := WatchFiles([]string{filepath.Join(t.TempDir(), "nope", "a.yaml")}, nil)
	assert.Error(t, err)
}
