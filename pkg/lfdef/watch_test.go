package lfdef

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "lfs.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("lfs: []\n"), 0o600))

	w, err := NewWatcher([]string{watched}, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o600))
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(150 * time.Millisecond):
	}

	// Several writes in quick succession collapse into one event.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(watched, []byte("lfs: []\n# edit\n"), 0o600))
	}

	select {
	case ev := <-w.Events():
		assert.Equal(t, watched, ev.Path)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("expected writes to be debounced, got second event for %s", ev.Path)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lfs.toml")
	w, err := NewWatcher([]string{path}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestNewWatcher_NoFiles(t *testing.T) {
	_, err := NewWatcher(nil, 0, nil)
	assert.Error(t, err)
}
