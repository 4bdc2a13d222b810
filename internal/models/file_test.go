package models_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spachava753/mixwatch/internal/models"
)

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	f := models.NewFile(path)
	if !f.Exists {
		t.Fatal("expected file to exist")
	}
	if f.Size != 5 {
		t.Errorf("expected size 5, got %d", f.Size)
	}

	missing := models.NewFile(filepath.Join(t.TempDir(), "missing.txt"))
	if missing.Exists {
		t.Error("expected missing file to not exist")
	}
}

func TestFileCollection(t *testing.T) {
	c := models.NewFileCollection()
	if c.Len() != 0 || len(c.Get()) != 0 {
		t.Fatal("expected empty collection")
	}

	c.Add(models.File{Path: "b.txt"}, models.File{Path: "a.txt"})
	c.Add(models.File{Path: "b.txt", Size: 10})

	if got := c.Get(); !slices.Equal(got, []string{"b.txt", "a.txt"}) {
		t.Errorf("expected insertion order without duplicates, got %v", got)
	}

	if c.Files()[0].Size != 10 {
		t.Error("expected re-added file to replace the earlier entry")
	}

	if !c.Contains("a.txt") || c.Contains("c.txt") {
		t.Error("unexpected Contains result")
	}
}

func TestFileCollectionZeroValue(t *testing.T) {
	var c models.FileCollection
	c.Add(models.File{Path: "x"})
	if c.Len() != 1 {
		t.Errorf("expected zero value to be usable, got len %d", c.Len())
	}
}
