// Package watch adapts fsnotify into the engine's change event stream.
//
// fsnotify does not watch directories recursively, so the watcher walks the
// source tree at startup and adds every subdirectory, then keeps the watch
// set current by adding directories as they are created. Delivery is
// best-effort: bursts can drop or reorder notifications, which the engine
// compensates for with idempotent reconciliation.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/engine"
)

// eventBuffer sizes the outgoing channel. The consumer applies events
// synchronously; the buffer only absorbs short bursts while a pass runs.
const eventBuffer = 256

// Watcher emits engine.ChangeEvent for every observed change under a source
// tree.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan engine.ChangeEvent
	done    chan struct{}
}

// New creates a watcher for the given source tree root. Start must be called
// before events are delivered.
func New(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:    root,
		watcher: fsw,
		events:  make(chan engine.ChangeEvent, eventBuffer),
		done:    make(chan struct{}),
	}, nil
}

// Start registers the root and all of its subdirectories with fsnotify and
// begins translating notifications. It returns after the dispatch goroutine
// is running.
func (w *Watcher) Start() error {
	if err := w.addRecursive(w.root); err != nil {
		if cerr := w.watcher.Close(); cerr != nil {
			logger.Warn("failed to close file watcher: %v", cerr)
		}
		return err
	}

	go w.dispatch()
	return nil
}

// Events returns the channel of translated change events. The channel is
// closed when the watcher stops.
func (w *Watcher) Events() <-chan engine.ChangeEvent {
	return w.events
}

// Close stops the watcher and closes the event channel.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// addRecursive adds dir and every subdirectory below it to the watch set.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %q: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
		return nil
	})
}

// dispatch translates fsnotify notifications until the underlying watcher is
// closed.
func (w *Watcher) dispatch() {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error: %v", err)
		}
	}
}

// handle maps one fsnotify event onto zero or one engine change event.
//
// fsnotify reports a rename as a Rename for the old path and a separate
// Create for the new one, so moves surface as Deleted+Created rather than a
// single Moved event; the engine's delete sweep and created-path handling
// converge to the same mirror state.
func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		// New directories must join the watch set immediately or changes
		// below them are never observed.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				logger.Warn("failed to watch new directory %s: %v", ev.Name, err)
			}
		}
		w.emit(engine.ChangeEvent{Kind: engine.Created, Path: ev.Name})

	case ev.Op.Has(fsnotify.Write):
		w.emit(engine.ChangeEvent{Kind: engine.Modified, Path: ev.Name})

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.emit(engine.ChangeEvent{Kind: engine.Deleted, Path: ev.Name})

		// Chmod carries no content change; the engine compares content only.
	}
}

// emit forwards an event, dropping it if the buffer is full. A dropped
// event is safe: the per-event delete sweep and the attach-time full
// reconciliation are the correctness backstop, not individual deliveries.
func (w *Watcher) emit(ev engine.ChangeEvent) {
	select {
	case w.events <- ev:
	default:
		logger.Warn("change event buffer full, dropping %s event for %s", ev.Kind, ev.Path)
	}
}
