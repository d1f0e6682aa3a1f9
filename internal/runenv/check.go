package runenv

import (
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/rs/zerolog/log"
	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/discover"
)

// Problem is a line that failed to parse.
type Problem struct {
	File string
	Err  *dotenv.LineError
}

type CheckResult struct {
	Files    []string
	Keys     []string
	Problems []Problem
}

func (r *CheckResult) OK() bool { return len(r.Problems) == 0 }

// Check parses every file to the end, collecting each bad line instead of
// stopping at the first. Missing files are skipped unless strict. I/O and
// decryption failures abort the check.
func Check(paths []string, identities []age.Identity, strict bool) (*CheckResult, error) {
	res := &CheckResult{}
	seen := make(map[string]bool)
	for _, p := range paths {
		keys, problems, err := checkFile(p, identities)
		if err != nil {
			if !strict && dotenv.IsNotFound(err) {
				log.Debug().Str("file", p).Msg("env file not found, skipping")
				continue
			}
			return nil, &dotenv.FileError{Path: p, Err: err}
		}
		res.Files = append(res.Files, p)
		res.Problems = append(res.Problems, problems...)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				res.Keys = append(res.Keys, k)
			}
		}
	}
	return res, nil
}

func checkFile(path string, identities []age.Identity) ([]string, []Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if discover.IsEncrypted(path) {
		if len(identities) == 0 {
			return nil, nil, errors.New("encrypted file but no age identity found")
		}
		if r, err = dotenv.DecryptReader(f, identities...); err != nil {
			return nil, nil, err
		}
	}

	var keys []string
	var problems []Problem
	for pair, err := range dotenv.NewIter(r).All() {
		if err != nil {
			var lineErr *dotenv.LineError
			if !errors.As(err, &lineErr) {
				return nil, nil, fmt.Errorf("read: %w", err)
			}
			problems = append(problems, Problem{File: path, Err: lineErr})
			continue
		}
		keys = append(keys, pair.Key)
	}
	return keys, problems, nil
}
