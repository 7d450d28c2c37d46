// Package watch signals changes to the instance state directory, debounced.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of record writes from several instances.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to the instance records in a state directory.
// Bursts of writes from several instances collapse into one signal, sent once
// no record has changed for the debounce duration.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration
	log       *slog.Logger
	changes   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
}

// Config holds watcher configuration options.
type Config struct {
	Dir         string
	DebounceDur time.Duration
	Logger      *slog.Logger
}

// New creates a watcher for cfg.Dir. The directory is created if missing so
// that watching can start before the first instance writes a record.
func New(cfg Config) (*Watcher, error) {
	if cfg.DebounceDur <= 0 {
		cfg.DebounceDur = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch state dir: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		dir:       cfg.Dir,
		debounce:  cfg.DebounceDur,
		log:       cfg.Logger,
		changes:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel holds at most one pending
// signal; changes while it is full are folded into that signal.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return nil, fmt.Errorf("watch state dir %s: %w", w.dir, err)
	}

	go w.run()

	return w.changes, nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	// Created stopped; every relevant event pushes the deadline out again.
	quiet := time.AfterFunc(time.Hour, w.signal)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-w.stop:
			return
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Debug("state dir watch error", "dir", w.dir, "error", err)
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if isRecordChange(ev) {
				quiet.Reset(w.debounce)
			}
		}
	}
}

func (w *Watcher) signal() {
	select {
	case <-w.stop:
	case w.changes <- struct{}{}:
	default:
	}
}

// isRecordChange matches record files; temp files written before the
// atomic rename are dot-prefixed and ignored.
func isRecordChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
