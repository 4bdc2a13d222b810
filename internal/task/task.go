// Package task defines the base abstraction for a unit of asset-build work.
//
// A task owns an ordered set of source files. It can be run once to produce
// its output, or put in watch mode, where each change to one of its files is
// passed to OnChange followed by an optional notification callback.
//
// Concrete tasks embed *Base[T] and implement Run and OnChange:
//
//	type CopyTask struct {
//	    *task.Base[CopyConfig]
//	}
//
//	func (t *CopyTask) Run(ctx context.Context) error { ... }
//	func (t *CopyTask) OnChange(ctx context.Context, path string) error { ... }
package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/spachava753/mixwatch/internal/models"
)

// ErrAbstractMethod is returned by Unimplemented's methods.
var ErrAbstractMethod = errors.New("abstract method")

// Task is a unit of build work that can run once or watch and rerun.
//
// The unexported methods are provided by embedding *Base[T].
type Task interface {
	// Run performs the build action over the task's files.
	Run(ctx context.Context) error

	// OnChange reacts to a single changed file.
	OnChange(ctx context.Context, path string) error

	watchPaths() []string
	watchState() *state
}

// Base holds the state shared by every task. T is the task's configuration
// payload; Base never inspects it.
type Base[T any] struct {
	Data   T
	Assets []models.File
	Files  *models.FileCollection

	st state
}

// New creates a Base holding data, with no assets, no files and watching off.
func New[T any](data T) *Base[T] {
	return &Base[T]{
		Data:   data,
		Assets: []models.File{},
		Files:  models.NewFileCollection(),
	}
}

// IsBeingWatched reports whether an active watcher subscription exists.
func (b *Base[T]) IsBeingWatched() bool {
	b.st.mu.Lock()
	defer b.st.mu.Unlock()
	return b.st.watching
}

func (b *Base[T]) watchPaths() []string { return b.Files.Get() }
func (b *Base[T]) watchState() *state   { return &b.st }

// Unimplemented can be embedded by tasks that are still being written. Its
// Run and OnChange fail with ErrAbstractMethod and do nothing else.
type Unimplemented[T any] struct {
	*Base[T]
}

// NewUnimplemented returns an Unimplemented task holding data.
func NewUnimplemented[T any](data T) *Unimplemented[T] {
	return &Unimplemented[T]{Base: New(data)}
}

func (Unimplemented[T]) Run(context.Context) error {
	return fmt.Errorf("task: Run is an %w; override it", ErrAbstractMethod)
}

func (Unimplemented[T]) OnChange(context.Context, string) error {
	return fmt.Errorf("task: OnChange is an %w; override it", ErrAbstractMethod)
}

var _ Task = (*Unimplemented[struct{}])(nil)
