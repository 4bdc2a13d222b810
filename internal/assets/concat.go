package assets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spachava753/mixwatch/internal/models"
	"github.com/spachava753/mixwatch/internal/task"
)

// ConcatConfig configures a ConcatTask.
type ConcatConfig struct {
	Sources []string
	Output  string
}

// ConcatTask joins its sources, in order and separated by newlines, into a
// single output file.
type ConcatTask struct {
	*task.Base[ConcatConfig]

	mu sync.Mutex
}

var _ task.Task = (*ConcatTask)(nil)

// NewConcatTask creates a ConcatTask and registers its sources.
func NewConcatTask(cfg ConcatConfig) *ConcatTask {
	t := &ConcatTask{Base: task.New(cfg)}
	for _, src := range cfg.Sources {
		t.Files.Add(models.NewFile(src))
	}
	return t
}

// Run writes the combined output.
func (t *ConcatTask) Run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.build(ctx)
}

// OnChange rebuilds the whole output, since every source is part of it.
func (t *ConcatTask) OnChange(ctx context.Context, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.build(ctx)
}

func (t *ConcatTask) build(ctx context.Context) error {
	var buf bytes.Buffer
	for i, f := range t.Files.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := f.Read()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Path, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}

	if err := os.MkdirAll(filepath.Dir(t.Data.Output), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(t.Data.Output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", t.Data.Output, err)
	}

	t.Assets = []models.File{models.NewFile(t.Data.Output)}
	return nil
}

// Outputs returns the files written by the last build.
func (t *ConcatTask) Outputs() []models.File {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.File(nil), t.Assets...)
}
