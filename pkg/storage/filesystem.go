package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalArchive keeps rendered export files on disk so a download survives the
// HTTP response that produced it.
type LocalArchive struct {
	dir string
}

// NewLocalArchive ensures the archive directory exists and returns a handle.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if dir == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

// Save writes the rendered file under the archive directory and returns its
// full path.
func (a *LocalArchive) Save(name string, data []byte) (string, error) {
	path := filepath.Join(a.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("archive export file: %w", err)
	}
	return path, nil
}

// Open returns a read-only handle on an archived file.
func (a *LocalArchive) Open(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(a.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("open archived export: %w", err)
	}
	return file, nil
}

// CleanupOlderThan removes archived files older than the TTL and reports how
// many were deleted.
func (a *LocalArchive) CleanupOlderThan(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("scan archive directory: %w", err)
	}
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return deleted, fmt.Errorf("stat archived export: %w", err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("remove archived export: %w", err)
		}
		deleted++
	}
	return deleted, nil
}
