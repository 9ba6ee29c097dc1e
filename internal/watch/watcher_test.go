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
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

func startWatcher(t *testing.T, w *Watcher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "t.json"), nil)
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "missing", "t.json"), func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestWatcher_InitialRunAndChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	var runs atomic.Int32
	w, err := New(path, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"role":"user","text":"thanks"}]`), 0600))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	var runs atomic.Int32
	w, err := New(path, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(300*time.Millisecond), WithInitialRun(false))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return runs.Load() > 1 }, 500*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.json")

	var runs atomic.Int32
	w, err := New(path, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0600))
	assert.Never(t, func() bool { return runs.Load() > 0 }, 200*time.Millisecond, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_RunErrorsAreLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))
	tl := logging.NewTestLogger()

	var runs atomic.Int32
	w, err := New(path, func(context.Context) error {
		runs.Add(1)
		return errors.New("store unreadable")
	}, WithDebounce(20*time.Millisecond), WithLogger(tl.Logger))
	require.NoError(t, err)
	stop := startWatcher(t, w)

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	stop()

	tl.AssertLogged(t, zapcore.ErrorLevel, "reflection run failed")
	tl.AssertLogged(t, zapcore.InfoLevel, "watch stopped")
}
