package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xmazu/dotenvy/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "dotenvy",
	Short:         "Load .env files into commands and shells",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `dotenvy - load .env files the way dotenv libraries do, from the command line.

Files are parsed with shell-like rules: single quotes are literal, double
quotes allow escapes and $VAR / ${VAR} substitution, and quoted values may
span several lines. Files ending in .age are decrypted with your age identity.

FILES:

  Without -f, dotenvy loads the files listed in .dotenvy.yaml at the project
  root, or else the nearest .env found by walking up from the current
  directory. -f accepts paths and glob patterns such as 'config/**/*.env'.

SEQUENCE:

  input-then-env (default)  existing variables win over file values
  env-then-input            file values override existing variables
  input-only                ignore the existing environment
  env-only                  load nothing

EXAMPLES:

  dotenvy run -- node server.js
  dotenvy run -f .env -f .env.local --watch -- go run ./cmd/api
  dotenvy get DATABASE_URL
  dotenvy check -f '**/.env*'
  eval "$(dotenvy export)"
  dotenvy encrypt --generate .env.production`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(os.Stderr, logLevel)
	},
}

var (
	logLevel     string
	rootDir      string
	envFiles     []string
	identityFile string
	sequenceFlag string
	noHistory    bool
)

func init() {
	rootCmd.SetVersionTemplate("dotenvy version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn, or $"+logging.LevelEnv+")")
	flags.StringVarP(&rootDir, "dir", "C", "", "Run as if dotenvy was started in this directory")
	flags.StringArrayVarP(&envFiles, "file", "f", nil, "Env file or glob pattern (can be repeated)")
	flags.StringVar(&identityFile, "identity", "", "age identity file for .age env files")
	flags.StringVar(&sequenceFlag, "sequence", "", "How files combine with the environment: input-then-env, env-then-input, input-only, env-only")
	flags.BoolVar(&noHistory, "no-history", false, "Do not record this invocation in .dotenvy/history.jsonl")
}

// SetVersion sets the version string shown by --version (e.g. from ldflags).
func SetVersion(v string) { rootCmd.Version = v }

// exitError carries a child or check exit status up to Execute.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
