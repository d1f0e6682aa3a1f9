package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
	"github.com/xmazu/dotenvy/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command with variables from .env files",
	Long: `Load env files and run the command with the resulting environment.
The command's exit status becomes dotenvy's exit status.

Use -f several times to load several files in order.
Use --env KEY=value to add or override a single variable; it always wins.
Use --redact to replace secret values in the command's output with [REDACTED:KEY].
Use --watch to restart the command whenever one of the env files changes.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

var runEnv []string
var runStrict bool
var runRedact bool
var runWatch bool

func init() {
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Environment override KEY=value (can be repeated)")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "Fail if any env file is missing")
	runCmd.Flags().BoolVar(&runRedact, "redact", false, "Redact secret values in command output with [REDACTED:KEY]")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "Restart the command when an env file changes")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("no command specified. Use: dotenvy run -- your-command")
	}

	target, err := resolveTarget()
	if err != nil {
		return err
	}
	res, err := buildRunEnv(target)
	if err != nil {
		return err
	}

	command, cmdArgs := args[0], args[1:]
	runID := history.NewRunID()
	redact := runRedact || target.Project.Redact

	if runWatch {
		return runWithWatch(cmd, target, res, runID, redact, command, cmdArgs)
	}

	var code int
	if redact {
		code, err = runenv.RunRedacted(res.Env, runenv.NewRedactor(res.Loaded, nil), rootDir, command, cmdArgs)
	} else {
		code, err = runenv.Run(res.Env, rootDir, command, cmdArgs)
	}
	recordRun(target, history.OpRun, runID, res, command, cmdArgs, code)
	return runExit(code, err)
}

func buildRunEnv(target *discover.Target) (*runenv.Result, error) {
	res, err := loadTarget(target, nil, runStrict)
	if err != nil {
		return nil, err
	}
	if err := res.MergeOverlay(runEnv); err != nil {
		return nil, err
	}
	log.Info().Int("files", len(res.Files)).Int("vars", len(res.Loaded)).Msg("environment loaded")
	return res, nil
}

func recordRun(target *discover.Target, op history.Op, runID string, res *runenv.Result, command string, args []string, code int) {
	recordHistory(target, op,
		history.WithRunID(runID),
		history.WithFiles(res.Files),
		history.WithKeys(sortedKeys(res.Loaded)),
		history.WithCommand(strings.Join(append([]string{command}, args...), " ")),
		history.WithExitCode(code),
	)
}

// runExit turns a child's exit status into the error returned by RunE.
func runExit(code int, err error) error {
	if code > 0 {
		return &exitError{code: code}
	}
	return err
}

func runWithWatch(cmd *cobra.Command, target *discover.Target, res *runenv.Result, runID string, redact bool, command string, args []string) error {
	fw, err := watch.NewFileWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	for _, f := range target.Files {
		if err := fw.Add(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("could not watch env file")
		}
	}
	changes := fw.Start()

	runner := &runenv.ProcessRunner{
		Command: command,
		Args:    args,
		Env:     res.Env,
		Workdir: rootDir,
	}
	if redact {
		runner.Redactor = runenv.NewRedactor(res.Loaded, nil)
	}
	if err := runner.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	current := res

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			if runner.Running() {
				_ = runner.Stop()
			}
			if sig == syscall.SIGTERM {
				return &exitError{code: 143}
			}
			return &exitError{code: 130}

		case <-changes:
			fmt.Fprintln(stderr(cmd), tui.Warning(fmt.Sprintf("env changed (%d files watched), restarting...", len(fw.Files()))))

			newRes, err := buildRunEnv(target)
			if err != nil {
				fmt.Fprintln(stderr(cmd), tui.Error("reload failed: ")+err.Error())
				continue
			}
			if runner.Running() {
				if err := runner.Stop(); err != nil {
					log.Warn().Err(err).Msg("stop command")
				}
			}

			current = newRes
			runner.Env = newRes.Env
			if redact {
				runner.Redactor = runenv.NewRedactor(newRes.Loaded, nil)
			}
			if err := runner.Start(); err != nil {
				return fmt.Errorf("restart command: %w", err)
			}
			recordRun(target, history.OpReload, runID, newRes, command, args, 0)

		case <-runner.Done():
			code := runner.ExitCode()
			recordRun(target, history.OpRun, runID, current, command, args, code)
			if err := runner.Wait(); err != nil && code < 0 {
				return err
			}
			return runExit(code, nil)
		}
	}
}
