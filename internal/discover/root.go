package discover

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xmazu/dotenvy/internal/config"
)

// MarkerFiles identify a project root, most specific first.
var MarkerFiles = []string{
	config.ProjectFileName,
	"go.work",
	"pnpm-workspace.yaml",
	"turbo.json",
	"lerna.json",
	"Cargo.toml",
	".git",
}

// FindRoot walks up from dir to the first directory holding a marker file.
// When none is found the absolute form of dir is returned.
func FindRoot(dir string) (string, error) {
	original, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	dir = original

	for {
		if FindMarker(dir) != "" {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return original, nil
		}
		dir = parent
	}
}

// FindMarker returns the first marker present in dir, or "".
func FindMarker(dir string) string {
	for _, marker := range MarkerFiles {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return marker
		}
	}
	return ""
}
