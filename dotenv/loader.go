package dotenv

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// DefaultPath is the file a Loader reads when no path or reader is given.
const DefaultPath = "./.env"

// Sequence decides how input values and the existing environment are
// combined. Values from the latter source override the former.
type Sequence int

const (
	// InputThenEnv loads the input, then lets the existing environment win.
	InputThenEnv Sequence = iota
	// EnvOnly inherits the existing environment and reads no input.
	EnvOnly
	// EnvThenInput starts from the environment and lets the input win.
	EnvThenInput
	// InputOnly ignores the existing environment.
	InputOnly
)

var sequenceNames = map[Sequence]string{
	InputThenEnv: "input-then-env",
	EnvOnly:      "env-only",
	EnvThenInput: "env-then-input",
	InputOnly:    "input-only",
}

func (s Sequence) String() string {
	if name, ok := sequenceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Sequence(%d)", int(s))
}

func ParseSequence(s string) (Sequence, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if normalized == "" {
		return InputThenEnv, nil
	}
	for seq, name := range sequenceNames {
		if name == normalized {
			return seq, nil
		}
	}
	return 0, fmt.Errorf("unknown sequence %q: want one of input-then-env, env-then-input, input-only, env-only", s)
}

// EnvMap is the result of a load.
type EnvMap map[string]string

// Var returns the value of key or a *NotPresentError.
func (m EnvMap) Var(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &NotPresentError{Key: key}
	}
	return v, nil
}

// Loader reads one env file or reader. IO is deferred until Load or
// LoadAndModify is called.
type Loader struct {
	path       string
	reader     io.Reader
	sequence   Sequence
	env        Environment
	identities []age.Identity
}

type Option func(*Loader)

func WithPath(path string) Option {
	return func(l *Loader) {
		l.path = path
	}
}

// WithReader reads input from r. A path set alongside it is only used for
// error messages.
func WithReader(r io.Reader) Option {
	return func(l *Loader) {
		l.reader = r
	}
}

func WithSequence(s Sequence) Option {
	return func(l *Loader) {
		l.sequence = s
	}
}

// WithEnvironment replaces the process environment, for reads, writes and
// substitution.
func WithEnvironment(env Environment) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// WithIdentities treats the input as an age-encrypted file.
func WithIdentities(ids ...age.Identity) Option {
	return func(l *Loader) {
		l.identities = append(l.identities, ids...)
	}
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		path: DefaultPath,
		env:  OSEnvironment(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the path used for reading or for error context.
func (l *Loader) Path() string { return l.path }

func (l *Loader) open() (io.ReadCloser, error) {
	var rc io.ReadCloser
	switch {
	case l.reader != nil:
		rc = io.NopCloser(l.reader)
	case l.path != "":
		f, err := os.Open(l.path)
		if err != nil {
			return nil, withPath(l.path, err)
		}
		rc = f
	default:
		return nil, ErrNoInput
	}

	if len(l.identities) == 0 {
		return rc, nil
	}
	plain, err := DecryptReader(rc, l.identities...)
	if err != nil {
		rc.Close()
		return nil, withPath(l.path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{plain, rc}, nil
}

func (l *Loader) loadInput(apply func(key, value string) error) (EnvMap, error) {
	rc, err := l.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	m, err := NewIter(rc, WithLookup(l.env)).load(apply)
	if err != nil {
		return nil, withPath(l.path, err)
	}
	return m, nil
}

// Load returns the combined variables without touching the environment.
func (l *Loader) Load() (EnvMap, error) {
	switch l.sequence {
	case EnvOnly:
		return EnvMap(l.env.Environ()), nil
	case EnvThenInput:
		existing := EnvMap(l.env.Environ())
		input, err := l.loadInput(nil)
		if err != nil {
			return nil, err
		}
		return merge(existing, input), nil
	case InputOnly:
		return l.loadInput(nil)
	default:
		input, err := l.loadInput(nil)
		if err != nil {
			return nil, err
		}
		return merge(input, l.env.Environ()), nil
	}
}

// LoadAndModify is Load that also writes the input into the environment.
// With InputThenEnv, keys that are already set are left alone.
func (l *Loader) LoadAndModify() (EnvMap, error) {
	switch l.sequence {
	case EnvOnly:
		return nil, ErrInvalidOp
	case EnvThenInput:
		existing := EnvMap(l.env.Environ())
		input, err := l.loadInput(l.env.Setenv)
		if err != nil {
			return nil, err
		}
		return merge(existing, input), nil
	case InputOnly:
		return l.loadInput(l.env.Setenv)
	default:
		existing := l.env.Environ()
		input, err := l.loadInput(func(key, value string) error {
			if _, ok := existing[key]; ok {
				return nil
			}
			return l.env.Setenv(key, value)
		})
		if err != nil {
			return nil, err
		}
		return merge(input, existing), nil
	}
}

func merge(dst EnvMap, src map[string]string) EnvMap {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Load reads the given files (default .env) into the process environment
// without overriding variables that are already set.
func Load(paths ...string) error {
	return loadFiles(paths, InputThenEnv)
}

// Overload is Load that overrides variables that are already set.
func Overload(paths ...string) error {
	return loadFiles(paths, InputOnly)
}

func loadFiles(paths []string, seq Sequence) error {
	if len(paths) == 0 {
		paths = []string{DefaultPath}
	}
	for _, p := range paths {
		if _, err := NewLoader(WithPath(p), WithSequence(seq)).LoadAndModify(); err != nil {
			return err
		}
	}
	return nil
}

// Read parses the given files (default .env) without modifying the
// environment. Later files override earlier ones.
func Read(paths ...string) (EnvMap, error) {
	if len(paths) == 0 {
		paths = []string{DefaultPath}
	}
	out := EnvMap{}
	for _, p := range paths {
		m, err := NewLoader(WithPath(p), WithSequence(InputOnly)).Load()
		if err != nil {
			return nil, err
		}
		merge(out, m)
	}
	return out, nil
}

// Parse reads env data from r. Substitutions still consult the process
// environment.
func Parse(r io.Reader) (EnvMap, error) {
	return NewLoader(WithReader(r), WithPath(""), WithSequence(InputOnly)).Load()
}

// Var returns a process environment variable or a *NotPresentError naming
// the key.
func Var(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", &NotPresentError{Key: key}
	}
	return v, nil
}
