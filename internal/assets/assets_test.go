package assets_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spachava753/mixwatch/internal/assets"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestCopyTask(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.txt")
	b := filepath.Join(dir, "src", "b.txt")
	writeFile(t, a, "alpha")
	writeFile(t, b, "beta")
	dest := filepath.Join(dir, "public")

	ct := assets.NewCopyTask(assets.CopyConfig{Sources: []string{a, b}, Dest: dest})

	if got := ct.Files.Get(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("unexpected files %v", got)
	}

	if err := ct.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readFile(t, filepath.Join(dest, "a.txt")); got != "alpha" {
		t.Errorf("expected alpha, got %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "b.txt")); got != "beta" {
		t.Errorf("expected beta, got %q", got)
	}
	if len(ct.Outputs()) != 2 {
		t.Errorf("expected 2 assets, got %d", len(ct.Outputs()))
	}

	// Only the changed file is recopied.
	writeFile(t, a, "alpha2")
	writeFile(t, b, "beta2")
	if err := ct.OnChange(context.Background(), a); err != nil {
		t.Fatalf("OnChange failed: %v", err)
	}

	if got := readFile(t, filepath.Join(dest, "a.txt")); got != "alpha2" {
		t.Errorf("expected alpha2, got %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "b.txt")); got != "beta" {
		t.Errorf("expected b.txt untouched, got %q", got)
	}
	if len(ct.Outputs()) != 2 {
		t.Errorf("expected assets to be updated in place, got %d", len(ct.Outputs()))
	}
}

func TestCopyTaskErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.txt")

	ct := assets.NewCopyTask(assets.CopyConfig{Sources: []string{missing}, Dest: filepath.Join(dir, "out")})
	if err := ct.Run(context.Background()); err == nil {
		t.Error("expected error for missing source")
	}

	if err := ct.OnChange(context.Background(), filepath.Join(dir, "other.txt")); err == nil {
		t.Error("expected error for path outside the task")
	}
}

func TestConcatTask(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.js")
	b := filepath.Join(dir, "b.js")
	writeFile(t, a, "var a = 1;")
	writeFile(t, b, "var b = 2;")
	out := filepath.Join(dir, "public", "all.js")

	ct := assets.NewConcatTask(assets.ConcatConfig{Sources: []string{a, b}, Output: out})
	if err := ct.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readFile(t, out); got != "var a = 1;\nvar b = 2;" {
		t.Errorf("unexpected output %q", got)
	}

	outputs := ct.Outputs()
	if len(outputs) != 1 || outputs[0].Path != out || !outputs[0].Exists {
		t.Errorf("unexpected assets %+v", outputs)
	}

	writeFile(t, b, "var b = 3;")
	if err := ct.OnChange(context.Background(), b); err != nil {
		t.Fatalf("OnChange failed: %v", err)
	}
	if got := readFile(t, out); got != "var a = 1;\nvar b = 3;" {
		t.Errorf("unexpected output after change %q", got)
	}
}

func TestConcatTaskMissingSource(t *testing.T) {
	dir := t.TempDir()
	ct := assets.NewConcatTask(assets.ConcatConfig{
		Sources: []string{filepath.Join(dir, "missing.js")},
		Output:  filepath.Join(dir, "out.js"),
	})

	if err := ct.Run(context.Background()); err == nil {
		t.Error("expected error for missing source")
	}
	if _, err := os.Stat(filepath.Join(dir, "out.js")); err == nil {
		t.Error("expected no output to be written")
	}
}
