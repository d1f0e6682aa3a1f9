package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/config"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/tui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a .dotenvy.yaml for the project",
	Long: `Find the project root (the nearest directory with a .git, go.work or other
workspace marker) and write .dotenvy.yaml there, listing every env file
found under it. Later commands load those files when -f is not given.

Examples:
  dotenvy init
  dotenvy init --sequence env-then-input --redact`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool
var initRedact bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .dotenvy.yaml")
	initCmd.Flags().BoolVar(&initRedact, "redact", false, "Redact secrets in 'run' output by default")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	root, err := discover.FindRoot(dir)
	if err != nil {
		return fmt.Errorf("find project root: %w", err)
	}
	if config.ProjectExists(root) && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.ProjectPath(root))
	}
	if _, err := dotenv.ParseSequence(sequenceFlag); err != nil {
		return err
	}

	files, err := discover.Walk(root)
	if err != nil {
		return fmt.Errorf("list env files: %w", err)
	}
	project, err := config.LoadProject(root)
	if err != nil {
		return err
	}
	project.Files = project.Files[:0]
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return err
		}
		project.Files = append(project.Files, filepath.ToSlash(rel))
	}
	if len(project.Files) == 0 {
		project.Files = []string{dotenv.DefaultFilename}
	}
	project.Sequence = sequenceFlag
	project.Redact = project.Redact || initRedact

	if err := project.Save(); err != nil {
		return fmt.Errorf("write %s: %w", config.ProjectPath(root), err)
	}

	errOut := stderr(cmd)
	fmt.Fprintf(errOut, "%s Wrote %s\n", tui.Success("✓"), config.ProjectPath(root))
	for _, f := range project.Files {
		fmt.Fprintf(errOut, "  %s\n", tui.Muted(f))
	}
	return nil
}
