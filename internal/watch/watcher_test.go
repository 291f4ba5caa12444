package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestNewRejectsNilHandler(t *testing.T) {
	_, err := New(t.TempDir(), 0, nil)
	assert.Error(t, err)
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(dir, 50*time.Millisecond, rec.handle)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	path := filepath.Join(dir, "task.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"test": []}`), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 3*time.Second, 10*time.Millisecond)
	// Give a stray second callback time to show up.
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, []string{path}, rec.snapshot())
	stats := w.Stats()
	assert.Equal(t, 1, stats.Handled)
	assert.Equal(t, path, stats.LastEventPath)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), 0, func(context.Context, string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")

	w.Stop()
	w.Stop()
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), 0, func(context.Context, string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	select {
	case <-w.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit after cancel")
	}
	w.Stop()
}

func TestWatcherCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "incoming")
	w, err := New(dir, 0, func(context.Context, string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
