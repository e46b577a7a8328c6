package task

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ensureDirectory creates a directory if it doesn't exist
func ensureDirectory(path string, perm os.FileMode) error {
	if err := validatePath(path); err != nil {
		return fmt.Errorf("invalid path %s: %w", path, err)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// removeIfExists removes a file, reporting whether this call removed it.
// A file already gone is not an error: another sweep got there first.
func removeIfExists(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// readDirIfExists lists a directory, treating a missing directory as empty
func readDirIfExists(path string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// validatePath performs basic validation on directory paths
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if filepath.Clean(path) != path && !filepath.IsAbs(path) {
		return fmt.Errorf("potentially unsafe path detected")
	}

	return nil
}
