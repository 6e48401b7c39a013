package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArchiveSaveAndOpen(t *testing.T) {
	archive, err := NewLocalArchive(filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)

	path, err := archive.Save("report_3.csv", []byte("Student,Status\n"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	file, err := archive.Open("report_3.csv")
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "Student,Status\n", string(body))
}

func TestLocalArchiveSaveStripsDirectoryTraversal(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewLocalArchive(dir)
	require.NoError(t, err)

	path, err := archive.Save("../escape.csv", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.csv"), path)
}

func TestLocalArchiveCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewLocalArchive(dir)
	require.NoError(t, err)

	_, err = archive.Save("old.csv", []byte("x"))
	require.NoError(t, err)
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), stale, stale))
	_, err = archive.Save("fresh.csv", []byte("x"))
	require.NoError(t, err)

	deleted, err := archive.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, filepath.Join(dir, "old.csv"))
	assert.FileExists(t, filepath.Join(dir, "fresh.csv"))
}
