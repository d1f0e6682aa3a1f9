package config

import (
	"fmt"
	"path/filepath"

	"github.com/xmazu/dotenvy/dotenv"
)

const ProjectFileName = ".dotenvy.yaml"

// Project is the optional per-project configuration. Relative paths are
// resolved against the directory holding the file.
type Project struct {
	Files    []string `yaml:"files,omitempty"`
	Sequence string   `yaml:"sequence,omitempty"`
	Strict   bool     `yaml:"strict,omitempty"`
	Identity string   `yaml:"identity,omitempty"`
	Redact   bool     `yaml:"redact,omitempty"`

	dir string
}

func ProjectPath(dir string) string {
	return filepath.Join(dir, ProjectFileName)
}

func ProjectExists(dir string) bool {
	return yamlFile{path: ProjectPath(dir)}.exists()
}

// LoadProject reads dir/.dotenvy.yaml. A missing file yields an empty
// Project rooted at dir.
func LoadProject(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	p := &Project{dir: abs}
	if err := (yamlFile{path: ProjectPath(abs)}).loadOrEmpty(p); err != nil {
		return nil, err
	}
	if _, err := dotenv.ParseSequence(p.Sequence); err != nil {
		return nil, fmt.Errorf("%s: %w", ProjectPath(abs), err)
	}
	return p, nil
}

func (p *Project) Save() error {
	return yamlFile{path: ProjectPath(p.dir)}.save(p, 0644)
}

func (p *Project) Dir() string { return p.dir }

func (p *Project) SequenceValue() dotenv.Sequence {
	seq, _ := dotenv.ParseSequence(p.Sequence)
	return seq
}

// IdentityPath returns the identity file named by the project, made
// absolute, or "" when none is set.
func (p *Project) IdentityPath() string {
	if p.Identity == "" {
		return ""
	}
	return p.resolve(p.Identity)
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}
