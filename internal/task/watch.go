package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spachava753/mixwatch/internal/watcher"
)

// state is the watch-mode bookkeeping embedded in every Base.
type state struct {
	mu       sync.Mutex
	watching bool
	w        watcher.Watcher
	cancel   context.CancelFunc
	grp      *errgroup.Group
	err      error
	closeErr error
}

// OnFileChange is called after OnChange completes for a changed file.
type OnFileChange func(ctx context.Context, t Task)

type watchOptions struct {
	usePolling   bool
	pollInterval time.Duration
	onFileChange OnFileChange
	newWatcher   watcher.Factory
	logger       *slog.Logger
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

// WithPolling selects polling instead of filesystem events.
func WithPolling(usePolling bool) WatchOption {
	return func(o *watchOptions) { o.usePolling = usePolling }
}

// WithPollInterval sets how often files are polled in polling mode.
func WithPollInterval(d time.Duration) WatchOption {
	return func(o *watchOptions) { o.pollInterval = d }
}

// WithOnFileChange sets the callback invoked after each handled change.
func WithOnFileChange(fn OnFileChange) WatchOption {
	return func(o *watchOptions) { o.onFileChange = fn }
}

// WithWatcherFactory replaces the filesystem watcher constructor.
func WithWatcherFactory(f watcher.Factory) WatchOption {
	return func(o *watchOptions) { o.newWatcher = f }
}

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l *slog.Logger) WatchOption {
	return func(o *watchOptions) { o.logger = l }
}

// Watch starts watching t's files and returns without blocking.
//
// Every change to a watched file calls t.OnChange, then the OnFileChange
// callback. Changes are handled one at a time in arrival order. Calling
// Watch on a task that is already being watched does nothing.
//
// Watching ends when ctx is cancelled, Stop is called, OnChange returns an
// error, or the watch cannot be re-armed after a rename. Wait reports the
// error, if any.
func Watch(ctx context.Context, t Task, opts ...WatchOption) error {
	o := watchOptions{
		onFileChange: func(context.Context, Task) {},
		newWatcher:   watcher.New,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	st := t.watchState()
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.watching {
		return nil
	}

	paths := t.watchPaths()
	w, err := o.newWatcher(paths, watcher.Options{
		UsePolling:   o.usePolling,
		PollInterval: o.pollInterval,
		Logger:       o.logger,
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	grp := &errgroup.Group{}

	st.watching = true
	st.w = w
	st.cancel = cancel
	st.grp = grp
	st.err = nil
	st.closeErr = nil

	d := &dispatcher{task: t, w: w, paths: paths, opts: o}
	grp.Go(func() error {
		err := d.loop(ctx)
		st.finish(err)
		return err
	})

	return nil
}

// Stop ends watch mode for t and waits for any in-flight change to finish.
// It is a no-op when t is not being watched.
//
// OnChange and the OnFileChange callback run on the goroutine Stop waits
// for, so calling Stop from either one deadlocks. To end watching from inside
// a handler, cancel the context that was passed to Watch.
func Stop(t Task) error {
	st := t.watchState()

	st.mu.Lock()
	cancel, grp := st.cancel, st.grp
	st.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	_ = grp.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closeErr != nil {
		return fmt.Errorf("closing watcher: %w", st.closeErr)
	}
	return nil
}

// Wait blocks until watch mode for t ends and returns the error that ended
// it. It returns nil right away when t was never watched.
func Wait(t Task) error {
	st := t.watchState()

	st.mu.Lock()
	grp := st.grp
	st.mu.Unlock()

	if grp == nil {
		return nil
	}
	_ = grp.Wait()

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// finish tears down the subscription once the dispatch loop has exited.
func (st *state) finish(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.cancel()
	st.closeErr = st.w.Close()
	st.watching = false
	st.w = nil
	st.cancel = nil
	st.err = err
}

type dispatcher struct {
	task  Task
	w     watcher.Watcher
	paths []string
	opts  watchOptions
}

func (d *dispatcher) loop(ctx context.Context) error {
	log := d.opts.logger

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-d.w.Changes():
			if err := d.task.OnChange(ctx, path); err != nil {
				log.Error("handling file change", "path", path, "error", err)
				return fmt.Errorf("handling change to %s: %w", path, err)
			}
			d.opts.onFileChange(ctx, d.task)

		case ev := <-d.w.Raw():
			if d.opts.usePolling || ev.Op != watcher.RawRename {
				continue
			}
			// Editors that save by renaming a new file over the old one
			// leave the watch on the old inode; re-arm to pick up the new one.
			if err := d.rearm(); err != nil {
				log.Error("re-arming watch after rename", "path", ev.Path, "error", err)
				return fmt.Errorf("re-arming watch after rename of %s: %w", ev.Path, err)
			}

		case err := <-d.w.Errors():
			log.Warn("file watcher error", "error", err)
		}
	}
}

func (d *dispatcher) rearm() error {
	if err := d.w.Unwatch(d.paths...); err != nil {
		return fmt.Errorf("unwatching files: %w", err)
	}
	if err := d.w.Add(d.paths...); err != nil {
		return fmt.Errorf("re-adding files: %w", err)
	}
	return nil
}
