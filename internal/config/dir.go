package config

import (
	"os"
	"path/filepath"
)

const (
	ConfigDirEnv = "DOTENVY_CONFIG_DIR"
	ConfigSubdir = "dotenvy"
)

func ConfigDir() string {
	if d := os.Getenv(ConfigDirEnv); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return filepath.Join(".", ConfigSubdir)
	}
	return filepath.Join(home, ".config", ConfigSubdir)
}
