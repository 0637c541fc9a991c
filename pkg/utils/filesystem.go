package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// StateDir is the directory holding run state such as the task output database.
const StateDir = ".emissions"

// ResolveDir resolves a data directory argument against the working directory.
// "./rel" and bare relative paths are joined to the working directory; absolute
// paths and paths carrying a volume separator are used as given.
func ResolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") || strings.Contains(dir, ":") {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, strings.TrimPrefix(dir, "./")), nil
}

// EnsureDir creates a directory and its parents on fs.
func EnsureDir(fs afero.Fs, dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}
	return nil
}

// EnsureParentDir creates the parent directory of path on fs.
func EnsureParentDir(fs afero.Fs, path string) error {
	return EnsureDir(fs, filepath.Dir(path))
}
