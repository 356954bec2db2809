package listener

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodega/internal"
	"bodega/internal/catalog"
	"bodega/internal/config"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
	idx   *catalog.Index
}

func (l *countingLoader) Load(context.Context) (internal.LoadRun, error) {
	n := l.calls.Add(1)
	return internal.LoadRun{TraceID: "t", StartedAt: "2026-10-19T08:00:00Z", Items: int(n)}, l.err
}

func (l *countingLoader) Current() *catalog.Index { return l.idx }

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepStale(time.Duration) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func runInBackground(t *testing.T, svc *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("listener did not stop")
		}
	})
	return cancel
}

func TestRunLoadsAtStartup(t *testing.T) {
	loader := &countingLoader{err: errors.New("source down")}
	runInBackground(t, NewService(loader, nil, config.Config{}, nil))

	assert.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRunReloadsOnDataChange(t *testing.T) {
	dir := t.TempDir()
	loader := &countingLoader{}
	cfg := config.Config{DataDir: dir, WatchData: true, WatchDebMs: 20}
	runInBackground(t, NewService(loader, nil, cfg, nil))

	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	// give the watcher time to register before touching the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solhaven.json"), []byte("{}"), 0o644))

	assert.Eventually(t, func() bool { return loader.calls.Load() == 2 }, 3*time.Second, 20*time.Millisecond)
}

func TestRunSchedules(t *testing.T) {
	loader := &countingLoader{}
	sweeper := &countingSweeper{}
	cfg := config.Config{ReloadCron: "@every 1s", SweepCron: "@every 1s", UploadSessionTTLMin: 60}
	runInBackground(t, NewService(loader, sweeper, cfg, nil))

	assert.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	svc := NewService(&countingLoader{}, nil, config.Config{ReloadCron: "every tuesday"}, nil)
	err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "reload schedule")
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/d/a.JSON", Op: fsnotify.Write}))
	assert.True(t, relevant(fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/a.json", Op: fsnotify.Chmod}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}))
}

func TestSanitizeStamp(t *testing.T) {
	assert.Equal(t, "20261019T080000Z", sanitizeStamp("2026-10-19T08:00:00Z"))
	assert.Equal(t, "latest", sanitizeStamp(""))
}
