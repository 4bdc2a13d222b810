// Package watchertest defines a fake Watcher implementation for testing.
package watchertest

import (
	"slices"
	"sync"

	"github.com/spachava753/mixwatch/internal/watcher"
)

// FakeWatcher is a Watcher whose events are driven by the test.
type FakeWatcher struct {
	mu sync.Mutex

	opts    watcher.Options
	paths   []string
	adds    [][]string
	unwatch [][]string
	closed  bool
	addErr  error

	changes chan string
	raw     chan watcher.RawEvent
	errors  chan error
}

var _ watcher.Watcher = &FakeWatcher{}

func NewFakeWatcher(paths []string, opts watcher.Options) *FakeWatcher {
	return &FakeWatcher{
		opts:    opts,
		paths:   slices.Clone(paths),
		changes: make(chan string),
		raw:     make(chan watcher.RawEvent),
		errors:  make(chan error),
	}
}

// Factory returns a watcher.Factory that records every watcher it creates
// in the returned Registry.
func Factory() (watcher.Factory, *Registry) {
	reg := &Registry{}
	return func(paths []string, opts watcher.Options) (watcher.Watcher, error) {
		w := NewFakeWatcher(paths, opts)
		reg.mu.Lock()
		reg.watchers = append(reg.watchers, w)
		reg.mu.Unlock()
		return w, nil
	}, reg
}

// Registry holds the fakes created by a Factory.
type Registry struct {
	mu       sync.Mutex
	watchers []*FakeWatcher
}

// Watchers returns the fakes created so far.
func (r *Registry) Watchers() []*FakeWatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.watchers)
}

// Change simulates a content change to path. It blocks until the change is
// received by the consumer.
func (w *FakeWatcher) Change(path string) {
	w.changes <- path
}

// RawEvent simulates a raw filesystem event. It blocks until received.
func (w *FakeWatcher) RawEvent(op watcher.RawOp, path string) {
	w.raw <- watcher.RawEvent{Op: op, Path: path}
}

// Fail simulates a backend error. It blocks until received.
func (w *FakeWatcher) Fail(err error) {
	w.errors <- err
}

// FailAdd makes every later Add call return err without watching anything.
func (w *FakeWatcher) FailAdd(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addErr = err
}

// Options returns the options the fake was created with.
func (w *FakeWatcher) Options() watcher.Options {
	return w.opts
}

// Paths returns the currently watched paths.
func (w *FakeWatcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.paths)
}

// AddCalls returns the arguments of every Add call.
func (w *FakeWatcher) AddCalls() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.adds)
}

// UnwatchCalls returns the arguments of every Unwatch call.
func (w *FakeWatcher) UnwatchCalls() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.unwatch)
}

// IsClosed reports whether Close was called.
func (w *FakeWatcher) IsClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *FakeWatcher) Changes() <-chan string       { return w.changes }
func (w *FakeWatcher) Raw() <-chan watcher.RawEvent { return w.raw }
func (w *FakeWatcher) Errors() <-chan error         { return w.errors }

func (w *FakeWatcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return watcher.ErrClosed
	}
	w.adds = append(w.adds, slices.Clone(paths))
	if w.addErr != nil {
		return w.addErr
	}
	for _, p := range paths {
		if !slices.Contains(w.paths, p) {
			w.paths = append(w.paths, p)
		}
	}
	return nil
}

func (w *FakeWatcher) Unwatch(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return watcher.ErrClosed
	}
	w.unwatch = append(w.unwatch, slices.Clone(paths))
	w.paths = slices.DeleteFunc(w.paths, func(p string) bool {
		return slices.Contains(paths, p)
	})
	return nil
}

func (w *FakeWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
