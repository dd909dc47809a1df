package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherTriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rentals.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	w, err := NewWatcher(path, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, func(p string) {
			assert.Equal(t, path, p)
			calls.Add(1)
		})
	}()

	// 修改时间需要晚于创建时间
	time.Sleep(50 * time.Millisecond)
	later := time.Now().Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+"\n"), 0o644))
	require.NoError(t, os.Chtimes(path, later, later))
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	// 其他文件的变化不会触发
	before := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, calls.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherStopDropsPendingReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	w, err := NewWatcher(path, 100*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	handler := func(string) { calls.Add(1) }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, handler)
	}()

	w.mu.Lock()
	w.schedule(ctx, handler)
	w.mu.Unlock()

	cancel()
	<-done
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherStopWaitsForRunningReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	w, err := NewWatcher(path, time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(string) {
		close(started)
		<-release
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, handler)
	}()

	w.mu.Lock()
	w.schedule(ctx, handler)
	w.mu.Unlock()
	<-started

	cancel()
	select {
	case <-done:
		t.Fatal("watch returned while reload was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
