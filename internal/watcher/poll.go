package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	poller "github.com/radovskyb/watcher"
	"golang.org/x/sync/errgroup"
)

// pollWatcher implements Watcher by periodically polling files.
type pollWatcher struct {
	mu sync.Mutex

	delegate *poller.Watcher
	logger   *slog.Logger

	// names maps absolute paths, as the poller reports them, back to the
	// caller's spelling.
	names map[string]string

	changes chan string
	raw     chan RawEvent
	errors  chan error

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func newPollWatcher(paths []string, opts Options) (*pollWatcher, error) {
	w := &pollWatcher{
		delegate: poller.New(),
		logger:   opts.Logger,
		names:    make(map[string]string),
		changes:  make(chan string),
		raw:      make(chan RawEvent),
		errors:   make(chan error),
		closeCh:  make(chan struct{}),
	}

	if err := w.Add(paths...); err != nil {
		return nil, err
	}

	if err := w.start(opts.PollInterval); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *pollWatcher) Changes() <-chan string { return w.changes }
func (w *pollWatcher) Raw() <-chan RawEvent   { return w.raw }
func (w *pollWatcher) Errors() <-chan error   { return w.errors }

func (w *pollWatcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		if err := w.delegate.Add(abs); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		w.names[abs] = p
	}
	return nil
}

func (w *pollWatcher) Unwatch(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		if err := w.delegate.Remove(abs); err != nil {
			return fmt.Errorf("unwatching %s: %w", p, err)
		}
		delete(w.names, abs)
	}
	return nil
}

func (w *pollWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.delegate.Close()
	w.wg.Wait()
	return nil
}

// start runs the polling loop and the event loop, and returns once the
// poller is running or has failed to start.
func (w *pollWatcher) start(interval time.Duration) error {
	grp, ctx := errgroup.WithContext(context.Background())
	w.wg.Add(2)

	grp.Go(func() error {
		defer w.wg.Done()
		w.loop(ctx)
		return nil
	})

	grp.Go(func() error {
		defer w.wg.Done()
		return w.delegate.Start(interval)
	})

	// Close is a no-op on the poller until Start is looping, so wait for
	// that before handing the watcher out.
	started := make(chan struct{})
	go func() {
		w.delegate.Wait()
		close(started)
	}()

	select {
	case <-started:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("starting poller: %w", grp.Wait())
	}
}

func (w *pollWatcher) loop(ctx context.Context) {
	for {
		select {
		case ev := <-w.delegate.Event:
			if ev.IsDir() {
				continue
			}
			w.handleEvent(ev)

		case err := <-w.delegate.Error:
			send(w.errors, err, w.closeCh)

		case <-w.delegate.Closed:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *pollWatcher) handleEvent(ev poller.Event) {
	w.mu.Lock()
	name, ok := w.names[ev.Path]
	w.mu.Unlock()
	if !ok {
		w.logger.Debug("watcher: ignoring event for unwatched path", "path", ev.Path, "op", ev.Op)
		return
	}

	op, known := pollerOps[ev.Op]
	if !known {
		return
	}

	if !send(w.raw, RawEvent{Op: op, Path: name}, w.closeCh) {
		return
	}

	if ev.Op == poller.Write {
		send(w.changes, name, w.closeCh)
	}
}

var pollerOps = map[poller.Op]RawOp{
	poller.Create: RawCreate,
	poller.Write:  RawChange,
	poller.Remove: RawRemove,
	poller.Rename: RawRename,
	poller.Move:   RawRename,
	poller.Chmod:  RawChmod,
}
