// Package watcher reports task files as they are resolved, by watching the
// results directory for <task-stem>_result.md files.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"policytask/internal/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a result file must stay quiet before it is reported
const DefaultDebounce = 250 * time.Millisecond

// ErrResultsDirMissing indicates the results directory does not exist
var ErrResultsDirMissing = errors.New("results directory does not exist")

// Resolver maps result files back to task files
type Resolver interface {
	ResultsDir() string
	TaskPathFor(resultPath string) (string, bool)
}

// Resolution is emitted once a result file for a task has appeared
type Resolution struct {
	TaskPath   string
	ResultPath string
	Time       time.Time
}

// Handler receives resolutions, one at a time, on the Run goroutine
type Handler func(ctx context.Context, r Resolution)

// ResultWatcher watches the results directory
type ResultWatcher struct {
	resolver Resolver
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	fired   chan string
	seen    map[string]bool
}

// Option configures a ResultWatcher
type Option func(*ResultWatcher)

// WithDebounce sets the quiet period before a result is reported
func WithDebounce(d time.Duration) Option {
	return func(w *ResultWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for the resolver's results directory
func New(resolver Resolver, opts ...Option) *ResultWatcher {
	w := &ResultWatcher{
		resolver: resolver,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		fired:    make(chan string, 64),
		seen:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Each result file is reported once per Run.
func (w *ResultWatcher) Run(ctx context.Context, handler Handler) error {
	lgr := logger.FromContext(ctx)
	dir := w.resolver.ResultsDir()

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrResultsDirMissing
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()
	defer w.stopTimers()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	lgr.Info("Watching results directory", zap.String("dir", dir), zap.Duration("debounce", w.debounce))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			lgr.Warn("Watcher error", zap.Error(err))
		case path := <-w.fired:
			w.emit(ctx, path, handler)
		}
	}
}

func (w *ResultWatcher) schedule(path string) {
	if _, ok := w.resolver.TaskPathFor(path); !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.fired <- path:
		default:
			// buffer full, the next write to the file schedules it again
		}
	})
}

func (w *ResultWatcher) emit(ctx context.Context, resultPath string, handler Handler) {
	if w.seen[resultPath] {
		return
	}
	// the result may have been removed again during the quiet period
	if _, err := os.Stat(resultPath); err != nil {
		return
	}

	taskPath, ok := w.resolver.TaskPathFor(resultPath)
	if !ok {
		return
	}

	w.seen[resultPath] = true
	handler(ctx, Resolution{
		TaskPath:   taskPath,
		ResultPath: filepath.Clean(resultPath),
		Time:       time.Now(),
	})
}

func (w *ResultWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
