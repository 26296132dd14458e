package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gallery.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("name: gallery\n"), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher([]string{file}, 20*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("name: gallery2\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherInitialFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gallery.yaml")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	boom := errors.New("boom")
	w, err := NewWatcher([]string{file}, 0, func() error { return boom })
	require.NoError(t, err)
	assert.ErrorIs(t, w.Run(context.Background()), boom)
}

func TestNewWatcherNeedsFiles(t *testing.T) {
	_, err := NewWatcher(nil, 0, func() error { return nil })
	assert.Error(t, err)
}
