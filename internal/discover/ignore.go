package discover

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFileName lists paths under the project root that Walk skips, one
// gitignore-style pattern per line.
const IgnoreFileName = ".dotenvyignore"

type ignoreRule struct {
	pattern string // doublestar, forward slashes
	dirOnly bool   // trailing slash
}

type IgnoreMatcher struct {
	rules []ignoreRule
}

func parseIgnoreFile(path string) ([]ignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []ignoreRule
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		dirOnly := strings.HasSuffix(line, "/")
		line = filepath.ToSlash(strings.TrimSuffix(line, "/"))
		switch {
		case strings.HasPrefix(line, "/"):
			line = strings.TrimPrefix(line, "/")
		case !strings.Contains(line, "/"):
			line = "**/" + line
		}
		if line == "" || line == "**/" {
			continue
		}
		if !doublestar.ValidatePattern(line) {
			return nil, fmt.Errorf("%s:%d: invalid pattern", path, n)
		}
		rules = append(rules, ignoreRule{pattern: line, dirOnly: dirOnly})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rules, nil
}

// LoadIgnore reads root/.dotenvyignore. A missing file gives a nil matcher,
// which ignores nothing.
func LoadIgnore(root string) (*IgnoreMatcher, error) {
	rules, err := parseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &IgnoreMatcher{rules: rules}, nil
}

// Ignored reports whether rel, a slash or OS separated path relative to the
// root, matches a rule.
func (m *IgnoreMatcher) Ignored(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(r.pattern, rel); ok {
			return true
		}
	}
	return false
}
