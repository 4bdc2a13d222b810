package watcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// eventWatcher implements Watcher using fsnotify.
//
// fsnotify is pointed at each file's parent directory rather than the file
// itself. A watch on the file follows its inode, so it goes quiet once an
// editor renames a new file over it. The directory watch keeps seeing the
// name, and events for other entries are dropped.
type eventWatcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// names maps cleaned paths, as fsnotify reports them, back to the
	// caller's spelling.
	names map[string]string
	// dirs counts watched names per directory.
	dirs map[string]int

	changes chan string
	raw     chan RawEvent
	errors  chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func newEventWatcher(paths []string, opts Options) (*eventWatcher, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &eventWatcher{
		watcher: fsw,
		logger:  opts.Logger,
		names:   make(map[string]string),
		dirs:    make(map[string]int),
		changes: make(chan string),
		raw:     make(chan RawEvent),
		errors:  make(chan error),
		closeCh: make(chan struct{}),
	}

	if err := w.Add(paths...); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

func (w *eventWatcher) Changes() <-chan string { return w.changes }
func (w *eventWatcher) Raw() <-chan RawEvent   { return w.raw }
func (w *eventWatcher) Errors() <-chan error   { return w.errors }

// Add needs each path's directory to exist. The file itself may be missing,
// which happens between an editor moving the old file away and writing the
// new one.
func (w *eventWatcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, p := range paths {
		clean := filepath.Clean(p)
		if _, ok := w.names[clean]; ok {
			w.names[clean] = p
			continue
		}

		dir := filepath.Dir(clean)
		if w.dirs[dir] == 0 {
			if err := w.watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", p, err)
			}
		}
		w.dirs[dir]++
		w.names[clean] = p
	}
	return nil
}

func (w *eventWatcher) Unwatch(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, p := range paths {
		clean := filepath.Clean(p)
		if _, ok := w.names[clean]; !ok {
			continue
		}
		delete(w.names, clean)

		dir := filepath.Dir(clean)
		w.dirs[dir]--
		if w.dirs[dir] > 0 {
			continue
		}
		delete(w.dirs, dir)

		// The kernel drops the watch on its own when the directory goes away.
		err := w.watcher.Remove(dir)
		if errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Debug("watcher: directory was no longer watched", "dir", dir)
		} else if err != nil {
			return fmt.Errorf("unwatching %s: %w", p, err)
		}
	}
	return nil
}

func (w *eventWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.watcher.Close()
}

func (w *eventWatcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
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
			send(w.errors, err, w.closeCh)
		}
	}
}

func (w *eventWatcher) handleEvent(ev fsnotify.Event) {
	w.mu.Lock()
	name, ok := w.names[filepath.Clean(ev.Name)]
	w.mu.Unlock()
	if !ok {
		return
	}

	for _, op := range convertOp(ev.Op) {
		if !send(w.raw, RawEvent{Op: op, Path: name}, w.closeCh) {
			return
		}
	}

	if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
		send(w.changes, name, w.closeCh)
	}
}

// convertOp splits an fsnotify op bitmask into raw ops. A watched name that
// is removed or renamed away is reported as a rename, since either way the
// path no longer refers to the file that was being watched.
func convertOp(op fsnotify.Op) []RawOp {
	var ops []RawOp
	if op.Has(fsnotify.Create) {
		ops = append(ops, RawCreate)
	}
	if op.Has(fsnotify.Write) {
		ops = append(ops, RawChange)
	}
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		ops = append(ops, RawRename)
	}
	if op.Has(fsnotify.Chmod) {
		ops = append(ops, RawChmod)
	}
	return ops
}
