package models

import (
	"os"
	"time"
)

// File is a single source or output path plus the metadata seen the last
// time it was stat'ed. Two Files are the same file when their paths match.
type File struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Exists  bool      `json:"exists"`
}

// NewFile returns a File for path with metadata filled in from disk.
// A missing file is not an error; Exists is false.
func NewFile(path string) File {
	f := File{Path: path}
	f.Refresh()
	return f
}

// Refresh re-reads the file's metadata.
func (f *File) Refresh() {
	info, err := os.Stat(f.Path)
	if err != nil || info.IsDir() {
		f.Size = 0
		f.ModTime = time.Time{}
		f.Exists = false
		return
	}
	f.Size = info.Size()
	f.ModTime = info.ModTime()
	f.Exists = true
}

// Read returns the contents of the file.
func (f File) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// FileCollection is an ordered set of files keyed by path.
type FileCollection struct {
	files []File
	index map[string]int
}

// NewFileCollection creates a collection holding the given paths in order.
func NewFileCollection(paths ...string) *FileCollection {
	c := &FileCollection{index: make(map[string]int)}
	for _, p := range paths {
		c.Add(NewFile(p))
	}
	return c
}

// Add appends files to the collection. A file whose path is already present
// replaces the earlier entry in place.
func (c *FileCollection) Add(files ...File) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	for _, f := range files {
		if i, ok := c.index[f.Path]; ok {
			c.files[i] = f
			continue
		}
		c.index[f.Path] = len(c.files)
		c.files = append(c.files, f)
	}
}

// Get returns the paths of all files, in insertion order.
func (c *FileCollection) Get() []string {
	paths := make([]string, len(c.files))
	for i, f := range c.files {
		paths[i] = f.Path
	}
	return paths
}

// Files returns a copy of the files in insertion order.
func (c *FileCollection) Files() []File {
	out := make([]File, len(c.files))
	copy(out, c.files)
	return out
}

// Contains reports whether path is part of the collection.
func (c *FileCollection) Contains(path string) bool {
	_, ok := c.index[path]
	return ok
}

// Len returns the number of files.
func (c *FileCollection) Len() int {
	return len(c.files)
}
