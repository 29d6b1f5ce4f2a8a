package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vortexlang/cbridge/pkg/common/logging"
)

// Applier is the subset of the bridge orchestrator a Watcher re-applies
// advisory limits to. Only MaxTasks/MaxCallbacks/the debug flag are
// hot-reloadable — tasks and callbacks already in flight are unaffected.
type Applier interface {
	ApplyLimits(maxTasks, maxCallbacks int64, enableDebugging bool)
}

// Watcher debounces writes to a config file and re-applies the advisory
// limits to a live bridge without a restart: an fsnotify watch with one
// debounce timer per path, keyed on a single file rather than a directory
// tree.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	applier Applier
	log     *logging.Logger

	mu          sync.Mutex
	debounce    *time.Timer
	stopped     bool
	debounceFor time.Duration
}

// NewWatcher creates a watcher on path. Call Start to begin watching.
func NewWatcher(path string, applier Applier, log *logging.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating fsnotify watcher: %w", err)
	}
	if log == nil {
		log = logging.GetGlobalLogger()
	}
	return &Watcher{
		watcher:     w,
		path:        path,
		applier:     applier,
		log:         log.WithComponent("bridge"),
		debounceFor: 150 * time.Millisecond,
	}, nil
}

// Start begins watching the config file's directory (fsnotify does not
// reliably track a single file across editors that replace it via
// rename-and-move) and debounces rapid writes into a single reload.
func (w *Watcher) Start() error {
	dir := dirOf(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceFor, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed, keeping current limits", map[string]interface{}{"error": err.Error()})
		return
	}
	w.applier.ApplyLimits(cfg.MaxTasks, cfg.MaxCallbacks, cfg.EnableDebugging)
	w.log.Info("config reloaded", map[string]interface{}{
		"max_tasks":        cfg.MaxTasks,
		"max_callbacks":    cfg.MaxCallbacks,
		"enable_debugging": cfg.EnableDebugging,
	})
}

// Stop closes the underlying fsnotify watcher and cancels any pending
// debounced reload.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
