package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"filippo.io/age"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/config"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/runenv"
)

func resolveTarget() (*discover.Target, error) {
	t, err := discover.Resolve(rootDir, envFiles)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("root", t.Root).Strs("files", t.Files).Msg("resolved env files")
	return t, nil
}

// resolveSingle resolves one file argument relative to --dir, keeping the
// project context for identities and history.
func resolveSingle(path string) (*discover.Target, string, error) {
	if path == "" {
		return nil, "", errors.New("file name is empty")
	}
	t, err := discover.Resolve(rootDir, []string{path})
	if err != nil {
		return nil, "", err
	}
	if len(t.Files) != 1 {
		return nil, "", fmt.Errorf("%s matches %d files, want exactly one", path, len(t.Files))
	}
	return t, t.Files[0], nil
}

func resolveSequence(t *discover.Target) (dotenv.Sequence, error) {
	if sequenceFlag != "" {
		return dotenv.ParseSequence(sequenceFlag)
	}
	return t.Project.SequenceValue(), nil
}

func resolveIdentities(t *discover.Target) ([]age.Identity, error) {
	ids, source, err := config.ResolveIdentities(identityFile, t.Project)
	if err != nil {
		return nil, fmt.Errorf("load age identity: %w", err)
	}
	if len(ids) > 0 {
		log.Debug().Str("source", string(source)).Int("count", len(ids)).Msg("using age identities")
	}
	return ids, nil
}

// loadTarget builds the environment for t on top of base (nil means the
// process environment).
func loadTarget(t *discover.Target, base map[string]string, strict bool) (*runenv.Result, error) {
	seq, err := resolveSequence(t)
	if err != nil {
		return nil, err
	}
	ids, err := resolveIdentities(t)
	if err != nil {
		return nil, err
	}
	return runenv.Load(t.Files, runenv.Options{
		Sequence:   seq,
		Strict:     strict || t.Project.Strict,
		Identities: ids,
		Base:       base,
	})
}

func recordHistory(t *discover.Target, op history.Op, opts ...history.Option) {
	if noHistory {
		return
	}
	if _, err := history.Log(t.Root, op, opts...); err != nil {
		log.Warn().Err(err).Str("op", string(op)).Msg("could not write history entry")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func stdout(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

func stderr(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stderr
	}
	return cmd.ErrOrStderr()
}

var isTerminal = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}
