// Package watch renders story files as they are dropped into a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is handled.
const DefaultSettle = 500 * time.Millisecond

// HandlerFunc processes one settled file.
type HandlerFunc func(ctx context.Context, path string) error

// Watcher calls a handler for every matching file created or written in a
// directory. Files are handled one at a time, once they stop changing.
type Watcher struct {
	dir    string
	match  func(path string) bool
	handle HandlerFunc
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for dir. match filters paths; handle runs for each
// settled file.
func New(dir string, match func(string) bool, handle HandlerFunc) *Watcher {
	return &Watcher{
		dir:     dir,
		match:   match,
		handle:  handle,
		settle:  DefaultSettle,
		pending: make(map[string]*time.Timer),
	}
}

// SetSettle changes the quiet period.
func (w *Watcher) SetSettle(d time.Duration) { w.settle = d }

// Run watches until ctx is done. Handler errors are logged and do not stop
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("watching for stories", "dir", w.dir)

	ready := make(chan string, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx, ready)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.match != nil && !w.match(event.Name) {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			w.schedule(ctx, filepath.Clean(event.Name), ready)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			log.Debug("fsnotify error", "dir", w.dir, "error", err)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) work(ctx context.Context, ready <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-ready:
			start := time.Now()
			if err := w.handle(ctx, path); err != nil {
				log.Error("unable to process story", "file", path, "err", err)
				continue
			}
			log.Info("processed story", "file", path, "took", time.Since(start).Round(time.Millisecond))
		}
	}
}
