// Package config holds filesystem helpers for locating serx files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoProjectRoot is returned when no go.mod is found above a directory.
var ErrNoProjectRoot = errors.New("go.mod not found in any parent directory")

// FindProjectRoot returns the closest directory at or above startDir that
// holds a go.mod file.
//
//	root, err := FindProjectRoot("/home/user/project/internal/config")
//	// root is "/home/user/project" when go.mod lives there
func FindProjectRoot(startDir string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		if info, err := os.Stat(filepath.Join(currentDir, "go.mod")); err == nil && !info.IsDir() {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", fmt.Errorf("%w: %s", ErrNoProjectRoot, startDir)
		}
		currentDir = parentDir
	}
}

// ResolvePath returns path unchanged when absolute, and joined to base otherwise.
func ResolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
