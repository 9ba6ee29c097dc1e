// Package watch re-runs reflection whenever a transcript file changes.
//
// The parent directory is watched rather than the file itself so that
// editors and session writers that replace the file by rename keep being
// observed. Bursts of events are coalesced by a debounce timer and runs are
// serialized on the watcher goroutine.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 2 * time.Second

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// RunFunc performs one reflection run over the watched transcript.
type RunFunc func(ctx context.Context) error

// Watcher triggers a RunFunc when its transcript changes.
type Watcher struct {
	path       string
	debounce   time.Duration
	run        RunFunc
	initialRun bool
	logger     *logging.Logger
	fs         *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithInitialRun runs once at start when the transcript already exists.
func WithInitialRun(enabled bool) Option {
	return func(w *Watcher) { w.initialRun = enabled }
}

// WithLogger sets the watcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l.Named("watch")
		}
	}
}

// New creates a watcher for the transcript at path. The containing
// directory must exist; the file itself may appear later.
func New(path string, run RunFunc, opts ...Option) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("run function is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving transcript path: %w", err)
	}
	dir := filepath.Dir(abs)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript directory %s is not a directory", dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &Watcher{
		path:       abs,
		debounce:   DefaultDebounce,
		run:        run,
		initialRun: true,
		logger:     logging.NewNop(),
		fs:         fs,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute transcript path.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is canceled. Errors from individual runs are logged
// and watching continues. The underlying watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()

	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info(ctx, "watching transcript",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce),
	)

	if w.initialRun {
		if _, err := os.Stat(w.path); err == nil {
			w.trigger(ctx)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "watch stopped", zap.String("path", w.path))
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Trace(ctx, "transcript changed", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "filesystem watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.trigger(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) trigger(ctx context.Context) {
	if err := w.run(ctx); err != nil {
		w.logger.Error(ctx, "reflection run failed", zap.String("path", w.path), zap.Error(err))
	}
}
