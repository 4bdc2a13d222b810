// Package assets provides the built-in task types: copying files into an
// output directory and concatenating files into a single output.
package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spachava753/mixwatch/internal/models"
	"github.com/spachava753/mixwatch/internal/task"
)

// CopyConfig configures a CopyTask.
type CopyConfig struct {
	Sources []string
	Dest    string // output directory
}

// CopyTask copies each source file into Dest, keeping its base name.
type CopyTask struct {
	*task.Base[CopyConfig]

	mu sync.Mutex
}

var _ task.Task = (*CopyTask)(nil)

// NewCopyTask creates a CopyTask and registers its sources.
func NewCopyTask(cfg CopyConfig) *CopyTask {
	t := &CopyTask{Base: task.New(cfg)}
	for _, src := range cfg.Sources {
		t.Files.Add(models.NewFile(src))
	}
	return t
}

// Run copies every source.
func (t *CopyTask) Run(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	assets := make([]models.File, 0, t.Files.Len())
	for _, src := range t.Files.Get() {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := t.copyOne(src)
		if err != nil {
			return err
		}
		assets = append(assets, out)
	}
	t.Assets = assets
	return nil
}

// OnChange copies only the changed file.
func (t *CopyTask) OnChange(_ context.Context, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Files.Contains(path) {
		return fmt.Errorf("%s is not a source of this task", path)
	}

	out, err := t.copyOne(path)
	if err != nil {
		return err
	}

	for i := range t.Assets {
		if t.Assets[i].Path == out.Path {
			t.Assets[i] = out
			return nil
		}
	}
	t.Assets = append(t.Assets, out)
	return nil
}

func (t *CopyTask) copyOne(src string) (models.File, error) {
	dst := filepath.Join(t.Data.Dest, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return models.File{}, fmt.Errorf("copying %s: %w", src, err)
	}
	t.Files.Add(models.NewFile(src))
	return models.NewFile(dst), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Outputs returns the files written by the last build.
func (t *CopyTask) Outputs() []models.File {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.File(nil), t.Assets...)
}
