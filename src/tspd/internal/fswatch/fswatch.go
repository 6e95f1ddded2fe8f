// Package fswatch reports changes of Python files inside the workspace roots.
package fswatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"github.com/uber/tsp-lsp/src/tspd/internal/eventqueue"
	"github.com/uber/tsp-lsp/src/tspd/internal/fs"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_configKey = "session"
	_debounce  = 200 * time.Millisecond
)

var (
	_pythonExtensions = []string{".py", ".pyi"}
	_ignoredDirs      = map[string]bool{".git": true, ".hg": true, "node_modules": true, "__pycache__": true, ".venv": true, ".mypy_cache": true}
)

// Module provides the Watcher.
var Module = fx.Provide(New)

// Watcher posts a FilesChanged action for every batch of Python file changes below the watched roots.
type Watcher interface {
	// Watch adds the roots and their subdirectories. It does nothing when watching is disabled.
	Watch(roots []string) error
}

// Config is read from the session block.
type Config struct {
	WatchFiles bool `yaml:"watchFiles"`
}

// Params are the dependencies of the Watcher.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	FS        fs.FS
	Queue     eventqueue.Queue
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
}

type watcher struct {
	fs       fs.FS
	queue    eventqueue.Queue
	logger   *zap.SugaredLogger
	stats    tally.Scope
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	watched map[string]bool
	done    chan struct{}
}

type disabled struct{}

func (disabled) Watch([]string) error { return nil }

// New creates the Watcher. The underlying fsnotify watcher lives as long as the application.
func New(p Params) (Watcher, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if !cfg.WatchFiles {
		return disabled{}, nil
	}

	w := newWatcher(p.FS, p.Queue, p.Logger, p.Stats)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return w.start()
		},
		OnStop: func(context.Context) error {
			return w.stop()
		},
	})
	return w, nil
}

func newWatcher(fileSystem fs.FS, queue eventqueue.Queue, logger *zap.SugaredLogger, stats tally.Scope) *watcher {
	return &watcher{
		fs:       fileSystem,
		queue:    queue,
		logger:   logger,
		stats:    stats.SubScope("fswatch"),
		debounce: _debounce,
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}
}

func (w *watcher) start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	go w.run(fsw)
	return nil
}

func (w *watcher) stop() error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}

	err := fsw.Close()
	<-w.done
	return err
}

func (w *watcher) Watch(roots []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return fmt.Errorf("file watcher is not running")
	}

	var errs error
	for _, root := range roots {
		errs = multierr.Append(errs, w.addRecursive(root))
	}
	w.stats.Gauge("directories").Update(float64(len(w.watched)))
	return errs
}

// addRecursive watches dir and its subdirectories. Subdirectories that cannot be watched are
// skipped. It must be called with mu held.
func (w *watcher) addRecursive(dir string) error {
	if !w.watched[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.watched[dir] = true
	}

	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || _ignoredDirs[entry.Name()] {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if err := w.addRecursive(sub); err != nil {
			w.logger.Debugw("skipping directory", "path", sub, zap.Error(err))
		}
	}
	return nil
}

// run batches events until no event arrived for the debounce window.
func (w *watcher) run(fsw *fsnotify.Watcher) {
	defer close(w.done)

	var (
		batch  changeBatch
		timer  *time.Timer
		expire <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.handle(event, &batch) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			expire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.stats.Counter("errors").Inc(1)
			w.logger.Warnw("file watcher failure", zap.Error(err))

		case <-expire:
			expire = nil
			changes := batch.flush()
			w.stats.Counter("changes").Inc(int64(len(changes)))
			w.logger.Debugw("files changed on disk", "count", len(changes))
			w.queue.Push(entity.ActionEvent{Action: entity.FilesChanged{Changes: changes}})
		}
	}
}

// handle reports whether the event was added to the batch.
func (w *watcher) handle(event fsnotify.Event, batch *changeBatch) bool {
	if event.Has(fsnotify.Create) {
		if isDir, err := w.fs.DirExists(event.Name); err == nil && isDir {
			w.mu.Lock()
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warnw("watching new directory failed", "path", event.Name, zap.Error(err))
			}
			w.mu.Unlock()
			return false
		}
	}
	if !isPython(event.Name) {
		return false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		batch.add(event.Name, protocol.FileChangeTypeDeleted)
	case event.Has(fsnotify.Create):
		batch.add(event.Name, protocol.FileChangeTypeCreated)
	case event.Has(fsnotify.Write):
		batch.add(event.Name, protocol.FileChangeTypeChanged)
	default:
		return false
	}
	return true
}

func isPython(name string) bool {
	for _, ext := range _pythonExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// changeBatch keeps the last change of every path in first seen order.
type changeBatch struct {
	order []string
	types map[string]protocol.FileChangeType
}

func (b *changeBatch) add(path string, t protocol.FileChangeType) {
	if b.types == nil {
		b.types = make(map[string]protocol.FileChangeType)
	}
	prev, seen := b.types[path]
	if !seen {
		b.order = append(b.order, path)
	}
	// a file created and then written within one batch is still new
	if seen && prev == protocol.FileChangeTypeCreated && t == protocol.FileChangeTypeChanged {
		return
	}
	b.types[path] = t
}

func (b *changeBatch) flush() []*protocol.FileEvent {
	changes := make([]*protocol.FileEvent, 0, len(b.order))
	for _, path := range b.order {
		changes = append(changes, &protocol.FileEvent{URI: uri.File(path), Type: b.types[path]})
	}
	b.order = nil
	b.types = nil
	return changes
}
