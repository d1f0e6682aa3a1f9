package dotenv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFilename is the file Find looks for when filename is empty.
const DefaultFilename = ".env"

// Find searches dir and its parents for filename. An empty dir means the
// working directory.
func Find(dir, filename string) (string, error) {
	return FindN(dir, filename, 0)
}

// FindN is Find limited to maxDepth directories. maxDepth <= 0 means no
// limit.
func FindN(dir, filename string, maxDepth int) (string, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory: %w", err)
	}

	for depth := 0; maxDepth <= 0 || depth < maxDepth; depth++ {
		candidate := filepath.Join(dir, filename)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.Mode().IsRegular():
			return candidate, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", withPath(candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s: %w", filename, ErrNotFound)
}
