// Package watcher notifies on changes to a fixed set of files.
//
// Two backends are available. The default uses OS filesystem events via
// fsnotify. The polling backend stats files periodically and works on
// network and container filesystems where events are not delivered.
package watcher

import (
	"errors"
	"log/slog"
	"time"
)

// RawOp names a low-level filesystem operation.
type RawOp string

const (
	RawCreate RawOp = "create"
	RawChange RawOp = "change"
	RawRemove RawOp = "remove"
	RawRename RawOp = "rename"
	RawChmod  RawOp = "chmod"
)

// RawEvent is an unfiltered filesystem event for a watched path.
type RawEvent struct {
	Op   RawOp
	Path string
}

// Watcher reports changes to the paths it was created with.
//
// Paths are reported exactly as they were passed to New, Add or Unwatch,
// so callers can compare them against their own path list.
type Watcher interface {
	// Changes receives a path every time its contents are modified.
	Changes() <-chan string

	// Raw receives every filesystem event for watched paths, including the
	// ones that also produced a change.
	Raw() <-chan RawEvent

	// Errors receives errors from the underlying backend.
	Errors() <-chan error

	// Add starts watching more paths.
	Add(paths ...string) error

	// Unwatch stops watching the given paths.
	Unwatch(paths ...string) error

	// Close stops the watcher. The channels are not written to afterward.
	Close() error
}

// Options configures a Watcher.
type Options struct {
	// UsePolling selects the polling backend instead of filesystem events.
	UsePolling bool

	// PollInterval is how often the polling backend stats files.
	//
	// If unset, this uses a default value.
	PollInterval time.Duration

	Logger *slog.Logger
}

// Factory creates a Watcher. It matches New and lets callers substitute a
// fake in tests.
type Factory func(paths []string, opts Options) (Watcher, error)

const defaultPollInterval = 100 * time.Millisecond

// New creates a watcher over paths and starts it.
func New(paths []string, opts Options) (Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UsePolling {
		if opts.PollInterval <= 0 {
			opts.PollInterval = defaultPollInterval
		}
		w, err := newPollWatcher(paths, opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	w, err := newEventWatcher(paths, opts)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ErrClosed is returned when a closed watcher is used.
var ErrClosed = errors.New("watcher: closed")

// send delivers v on ch unless done is closed first.
func send[T any](ch chan T, v T, done <-chan struct{}) bool {
	select {
	case ch <- v:
		return true
	case <-done:
		return false
	}
}
