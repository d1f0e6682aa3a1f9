package runenv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/rs/zerolog/log"
	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/discover"
)

// Options controls how several env files are combined.
type Options struct {
	Sequence dotenv.Sequence
	// Strict fails on a missing file instead of skipping it.
	Strict bool
	// Identities decrypt files ending in .age.
	Identities []age.Identity
	// Base is the starting environment. Nil means the process environment.
	Base map[string]string
}

// Result is the environment built for a child process.
type Result struct {
	// Env is the full child environment.
	Env map[string]string
	// Loaded holds the variables that came from env files or overlays,
	// with their final values.
	Loaded map[string]string
	// Files lists the files that were actually read.
	Files []string
}

type recordingEnv struct {
	dotenv.MapEnvironment
	set map[string]bool
}

func (e *recordingEnv) Setenv(key, value string) error {
	e.set[key] = true
	return e.MapEnvironment.Setenv(key, value)
}

// Load applies each file in order to a copy of the base environment using
// the sequence of opts. Files loaded later see earlier values during
// substitution. With InputThenEnv an earlier file wins, as with
// dotenv.Load; the other sequences let later files override.
func Load(paths []string, opts Options) (*Result, error) {
	base := opts.Base
	if base == nil {
		base = dotenv.OSEnvironment().Environ()
	}
	env := &recordingEnv{
		MapEnvironment: dotenv.MapEnvironment(base).Environ(),
		set:            make(map[string]bool),
	}
	res := &Result{}

	if opts.Sequence != dotenv.EnvOnly {
		for _, p := range paths {
			loaderOpts := []dotenv.Option{
				dotenv.WithPath(p),
				dotenv.WithSequence(opts.Sequence),
				dotenv.WithEnvironment(env),
			}
			if discover.IsEncrypted(p) {
				if len(opts.Identities) == 0 {
					return nil, fmt.Errorf("%s: encrypted file but no age identity found", p)
				}
				loaderOpts = append(loaderOpts, dotenv.WithIdentities(opts.Identities...))
			}

			_, err := dotenv.NewLoader(loaderOpts...).LoadAndModify()
			if err != nil {
				if !opts.Strict && dotenv.IsNotFound(err) {
					log.Debug().Str("file", p).Msg("env file not found, skipping")
					continue
				}
				return nil, err
			}
			log.Debug().Str("file", p).Str("sequence", opts.Sequence.String()).Msg("loaded env file")
			res.Files = append(res.Files, p)
		}
	}

	res.Env = env.MapEnvironment
	res.Loaded = make(map[string]string, len(env.set))
	for k := range env.set {
		res.Loaded[k] = env.MapEnvironment[k]
	}
	return res, nil
}

// MergeOverlay applies KEY=value overrides from the command line. They
// always win.
func (r *Result) MergeOverlay(overlay []string) error {
	for _, s := range overlay {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --env %q: expected KEY=value", s)
		}
		r.Env[key] = value
		r.Loaded[key] = value
	}
	return nil
}

// Environ renders env as sorted KEY=value pairs for exec.Cmd.Env.
func Environ(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func setupCommand(command string, args []string, env map[string]string, workdir string) *exec.Cmd {
	cmd := exec.Command(command, args...)
	cmd.Env = Environ(env)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if workdir != "" {
		cmd.Dir = workdir
	}
	// Do not set Setpgid: child stays in our process group so Ctrl+C kills it too.
	return cmd
}

func exitCodeFromError(runErr error) (int, error) {
	if runErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), runErr
	}
	return -1, fmt.Errorf("failed to run command: %w", runErr)
}

// Run executes command with env and returns its exit code. A non-zero
// exit is reported as both the code and an *exec.ExitError.
func Run(env map[string]string, workdir, command string, args []string) (int, error) {
	cmd := setupCommand(command, args, env, workdir)
	return exitCodeFromError(cmd.Run())
}

// RunRedacted is Run with secrets in the child's output replaced. Output is
// forwarded line by line while the child runs.
func RunRedacted(env map[string]string, r *Redactor, workdir, command string, args []string) (int, error) {
	return runRedacted(setupCommand(command, args, env, workdir), r, os.Stdout, os.Stderr)
}

func runRedacted(cmd *exec.Cmd, r *Redactor, stdout, stderr io.Writer) (int, error) {
	cmd.Stdout = nil
	cmd.Stderr = nil
	outR, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return exitCodeFromError(err)
	}

	var copying sync.WaitGroup
	copying.Add(2)
	go func() {
		defer copying.Done()
		copyRedacted(stdout, outR, r)
	}()
	go func() {
		defer copying.Done()
		copyRedacted(stderr, errR, r)
	}()
	copying.Wait()
	return exitCodeFromError(cmd.Wait())
}
