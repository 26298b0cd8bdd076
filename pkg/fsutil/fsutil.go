// Package fsutil provides the small file helpers shared by the stores.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DirPerm is used for every directory the pipeline creates.
	DirPerm = 0750
	// FilePerm is used for every file the pipeline writes.
	FilePerm = 0600
)

var pathMutexes sync.Map

// PathMutex returns the process-wide mutex guarding path.
func PathMutex(path string) *sync.Mutex {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	mu, _ := pathMutexes.LoadOrStore(abs, &sync.Mutex{})

	return mu.(*sync.Mutex)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, DirPerm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	err = os.Chmod(tmpName, perm)
	if err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}
