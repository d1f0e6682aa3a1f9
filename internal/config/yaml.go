package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	path string
}

func (y yamlFile) exists() bool {
	_, err := os.Stat(y.path)
	return err == nil
}

// loadOrEmpty leaves dest untouched when the file does not exist.
func (y yamlFile) loadOrEmpty(dest any) error {
	data, err := os.ReadFile(y.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", y.path, err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse %s: %w", y.path, err)
	}
	return nil
}

func (y yamlFile) save(data any, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(y.path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(y.path, out, perm); err != nil {
		return fmt.Errorf("write %s: %w", y.path, err)
	}
	return nil
}
