package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var DefaultExcludeDirs = []string{
	".git",
	"node_modules",
	"vendor",
	".cache",
	".turbo",
	".next",
}

// IsEnvFilename reports whether name looks like an env file: .env,
// .env.<suffix>, or an age-encrypted variant ending in .age. Templates
// (.env.example) are skipped.
func IsEnvFilename(name string) bool {
	name = strings.TrimSuffix(name, ".age")
	switch {
	case name == ".env":
		return true
	case name == ".env.example", name == ".env.sample", name == ".env.template":
		return false
	}
	return strings.HasPrefix(name, ".env.") && len(name) > len(".env.")
}

// IsEncrypted reports whether path names an age-encrypted env file.
func IsEncrypted(path string) bool {
	return strings.HasSuffix(path, ".age")
}

// Walk lists every env file under root, skipping DefaultExcludeDirs and
// anything matched by root/.dotenvyignore. Results are absolute and sorted.
func Walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}
	ignore, err := LoadIgnore(root)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool, len(DefaultExcludeDirs))
	for _, d := range DefaultExcludeDirs {
		exclude[d] = true
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if exclude[d.Name()] || ignore.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsEnvFilename(d.Name()) && !ignore.Ignored(rel, false) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Expand resolves patterns against root. Plain paths are kept even when
// the file does not exist so that callers can report it; glob patterns
// ("**" included) expand to the matching regular files in sorted order.
// Patterns are processed in order and duplicates keep their first
// position, so later patterns still override earlier ones when loaded.
func Expand(root string, patterns []string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if !hasMeta(pattern) {
			add(absUnder(root, pattern))
			continue
		}

		base, rel := root, filepath.ToSlash(pattern)
		if filepath.IsAbs(pattern) {
			base, rel = doublestar.SplitPattern(rel)
			base = filepath.FromSlash(base)
		}
		if !doublestar.ValidatePattern(rel) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}

		matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(filepath.Join(base, filepath.FromSlash(m)))
		}
	}
	return out, nil
}

// Match reports whether path, relative to root, matches any pattern.
func Match(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, err := doublestar.Match(filepath.ToSlash(p), rel); err == nil && ok {
			return true
		}
	}
	return false
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func absUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
