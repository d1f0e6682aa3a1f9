package config

import (
	"fmt"
	"path/filepath"
	"sort"
)

const KeysFileName = "keys.yaml"

// KeysFile maps project roots to the age identity used to decrypt their
// env files.
type KeysFile struct {
	Projects map[string]string `yaml:"projects"`
	file     yamlFile
}

func KeysPath() string {
	return filepath.Join(ConfigDir(), KeysFileName)
}

func LoadKeysFile() (*KeysFile, error) {
	kf := &KeysFile{
		Projects: make(map[string]string),
		file:     yamlFile{path: KeysPath()},
	}
	if err := kf.file.loadOrEmpty(kf); err != nil {
		return nil, err
	}
	if kf.Projects == nil {
		kf.Projects = make(map[string]string)
	}
	return kf, nil
}

func (k *KeysFile) Save() error {
	return k.file.save(k, 0600)
}

func (k *KeysFile) Get(projectRoot string) (string, bool) {
	key, ok := k.Projects[projectRoot]
	return key, ok && key != ""
}

func (k *KeysFile) Set(projectRoot, identity string) error {
	if projectRoot == "" {
		return fmt.Errorf("project root must not be empty")
	}
	if identity == "" {
		return fmt.Errorf("identity must not be empty")
	}
	k.Projects[projectRoot] = identity
	return k.Save()
}

func (k *KeysFile) List() []string {
	roots := make([]string, 0, len(k.Projects))
	for root := range k.Projects {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
