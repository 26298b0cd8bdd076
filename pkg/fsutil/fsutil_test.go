package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic_CreatesParentsAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), FilePerm))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), FilePerm))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerm), info.Mode().Perm())
}

func TestPathMutex_SameForEquivalentPaths(t *testing.T) {
	dir := t.TempDir()

	a := PathMutex(filepath.Join(dir, "a.json"))
	b := PathMutex(filepath.Join(dir, ".", "a.json"))

	assert.Same(t, a, b)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(path, nil, FilePerm))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}
