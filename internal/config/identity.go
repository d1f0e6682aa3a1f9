package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

const (
	IdentityEnv      = "DOTENVY_AGE_KEY"
	IdentityFileName = "identity.txt"
)

// IdentitySource says where identities were found.
type IdentitySource string

const (
	SourceNone    IdentitySource = ""
	SourceEnv     IdentitySource = "env"
	SourceFlag    IdentitySource = "flag"
	SourceProject IdentitySource = "project"
	SourceKeys    IdentitySource = "keys"
	SourceDefault IdentitySource = "default"
)

// ResolveIdentities returns the age identities for decrypting env files.
// Sources are tried in order: $DOTENVY_AGE_KEY, flagPath, the project
// identity file, the keys file entry for the project root, and
// <config dir>/identity.txt. Finding none is not an error.
func ResolveIdentities(flagPath string, project *Project) ([]age.Identity, IdentitySource, error) {
	if s := os.Getenv(IdentityEnv); s != "" {
		ids, err := ParseIdentities(s)
		if err != nil {
			return nil, SourceNone, fmt.Errorf("%s: %w", IdentityEnv, err)
		}
		return ids, SourceEnv, nil
	}

	if flagPath != "" {
		ids, err := ReadIdentityFile(flagPath)
		return ids, SourceFlag, err
	}

	if project != nil {
		if path := project.IdentityPath(); path != "" {
			ids, err := ReadIdentityFile(path)
			return ids, SourceProject, err
		}
		if kf, err := LoadKeysFile(); err == nil {
			if s, ok := kf.Get(project.Dir()); ok {
				ids, err := ParseIdentities(s)
				if err != nil {
					return nil, SourceNone, fmt.Errorf("%s: %w", KeysPath(), err)
				}
				return ids, SourceKeys, nil
			}
		}
	}

	path := filepath.Join(ConfigDir(), IdentityFileName)
	ids, err := ReadIdentityFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, SourceNone, nil
	}
	return ids, SourceDefault, err
}

func ParseIdentities(s string) ([]age.Identity, error) {
	ids, err := age.ParseIdentities(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("parse identities: %w", err)
	}
	return ids, nil
}

func ReadIdentityFile(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}

// ParseRecipients accepts age recipient strings (age1...).
func ParseRecipients(values []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(values))
	for _, v := range values {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("parse recipient %q: %w", v, err)
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}
