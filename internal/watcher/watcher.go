// Package watcher monitors a configuration directory for rewrites by other
// processes, with debouncing.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/RMShur/model-organization/internal/log"
	"github.com/RMShur/model-organization/internal/store"
)

// Watcher signals when one of the registry index files in a configuration
// directory changes on disk.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	confDir   string
	debounce  time.Duration
	st        *store.Store
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher options.
type Config struct {
	ConfDir     string
	DebounceDur time.Duration
	// Store, when set, has its document cache invalidated for changed files.
	Store *store.Store
}

// DefaultConfig returns sensible defaults for a configuration directory.
func DefaultConfig(confDir string) Config {
	return Config{ConfDir: confDir, DebounceDur: time.Second}
}

// New creates a watcher over the configuration directory.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		confDir:   cfg.ConfDir,
		debounce:  cfg.DebounceDur,
		st:        cfg.Store,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Returns a channel that receives a signal after the
// debounce window whenever an index file changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.fsWatcher.Add(w.confDir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", w.confDir, err)
	}
	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			log.Debug(log.CatWatcher, "config file changed", "file", event.Name, "op", event.Op.String())
			if w.st != nil {
				w.st.InvalidateCache(event.Name)
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
			pending = true

		case <-timerC(timer):
			if pending {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// isRelevantEvent reports whether the event touches one of the index files.
// Lock and backup sidecars are ignored.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Base(event.Name) {
	case "projects.yml", "experiments.yml", "globals.yml":
		return true
	}
	return false
}
