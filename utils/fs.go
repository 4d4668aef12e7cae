// Package utils holds small filesystem helpers.
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// EnsureDirectory makes sure path is a directory with the given permissions.
// A file in its place is removed. Missing parents are created with perm.
func EnsureDirectory(path string, perm os.FileMode) error {
	stat, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// create below
	case err != nil:
		return fmt.Errorf("failed to access %s: %w", path, err)
	case stat.IsDir():
		if stat.Mode().Perm() == perm || runtime.GOOS == "windows" {
			return nil
		}
		return os.Chmod(path, perm)
	default:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("could not remove file %s to place dir: %w", path, err)
		}
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("could not create dir %s: %w", path, err)
	}
	return nil
}

// EnsureParentDirectory creates the missing directories leading to the file
// at path. Existing directories are left untouched.
func EnsureParentDirectory(path string, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return EnsureDirectory(dir, perm)
}
