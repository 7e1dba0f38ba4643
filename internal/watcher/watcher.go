// Package watcher watches the embedding artifact directory and reports
// which scope's artifact changed, with debouncing.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one artifact directory. An external trainer (or another
// chalkbot process) replacing an artifact triggers onChange for that scope
// so cached indexes can be invalidated. Writes are debounced per scope
// because a save is a temp-write plus a rename.
type Watcher struct {
	dir      string
	onChange func(scope models.Scope)
	debounce time.Duration

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer // scope key -> pending timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger // optional; when set, logs debug events
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over dir. onChange is called once per settled
// artifact change, with the scope whose artifact was touched.
func New(dir string, onChange func(scope models.Scope), opts ...Option) *Watcher {
	w := &Watcher{
		dir:         dir,
		onChange:    onChange,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("artifact watcher starting", zap.String("dir", w.dir))
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("artifact watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	scope, ok := scopeFromArtifact(ev.Name)
	if !ok {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	if w.logger != nil {
		w.logger.Debug("artifact event",
			zap.String("op", ev.Op.String()),
			zap.String("scope", scope.String()))
	}
	w.debounceChange(scope)
}

func (w *Watcher) debounceChange(scope models.Scope) {
	key := scope.String()
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[key]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, key)
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("artifact changed (debounced)", zap.String("scope", key))
		}
		if w.onChange != nil {
			w.onChange(scope)
		}
	})
	w.debounceMap[key] = t
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for key, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, key)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// scopeFromArtifact maps an artifact path to its scope. Temp files and
// unrelated names are ignored.
func scopeFromArtifact(path string) (models.Scope, bool) {
	name := filepath.Base(path)
	if name == models.GlobalScope().ArtifactName() {
		return models.GlobalScope(), true
	}
	if strings.HasPrefix(name, "user_") && strings.HasSuffix(name, "_embeddings.json") {
		id := strings.TrimSuffix(strings.TrimPrefix(name, "user_"), "_embeddings.json")
		if id != "" {
			return models.UserScope(id), true
		}
	}
	return models.Scope{}, false
}
