package executor

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spachava753/mixwatch/internal/models"
)

// versionHashLen is how many hex characters of the content hash end up in
// a versioned asset URL.
const versionHashLen = 20

// WriteManifest writes a JSON object mapping each asset path to a
// cache-busting versioned path. Missing assets are skipped.
func WriteManifest(path string, files []models.File) error {
	manifest := make(map[string]string, len(files))
	for _, f := range files {
		data, err := f.Read()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading asset %s: %w", f.Path, err)
		}
		sum := md5.Sum(data)
		key := filepath.ToSlash(f.Path)
		manifest[key] = key + "?id=" + hex.EncodeToString(sum[:])[:versionHashLen]
	}

	// json.Marshal sorts map keys.
	data, err := json.MarshalIndent(manifest, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	// Replace atomically so readers never see a partial manifest.
	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting manifest permissions: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
