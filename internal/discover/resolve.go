package discover

import (
	"fmt"
	"path/filepath"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/config"
)

// Target is the project a command operates on and the env files it loads.
type Target struct {
	Root    string
	Project *config.Project
	Files   []string
}

// Resolve picks env files for a command started in dir. Explicit patterns
// win, then the project's files list, then the nearest .env found by
// walking up from dir.
func Resolve(dir string, patterns []string) (*Target, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	root, err := FindRoot(abs)
	if err != nil {
		return nil, err
	}
	project, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}

	t := &Target{Root: root, Project: project}
	switch {
	case len(patterns) > 0:
		t.Files, err = Expand(abs, patterns)
	case len(project.Files) > 0:
		t.Files, err = Expand(root, project.Files)
	default:
		var path string
		path, err = dotenv.Find(abs, dotenv.DefaultFilename)
		if dotenv.IsNotFound(err) {
			path, err = filepath.Join(abs, dotenv.DefaultFilename), nil
		}
		t.Files = []string{path}
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
