package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/tui"
)

var findCmd = &cobra.Command{
	Use:   "find [filename | pattern...]",
	Short: "Show which env file would be loaded",
	Long: `Search the current directory and its parents for filename (default .env)
and print the first path found.

With --all, list every env file under the project root instead; arguments
are then glob patterns relative to the root that filter the list, and
--tree draws the result grouped by directory. Paths matched by the root's
.dotenvyignore are skipped.

Examples:
  dotenvy find
  dotenvy find .env.test
  dotenvy find --all 'apps/**'
  dotenvy find --all --tree`,
	RunE: runFind,
}

var findAll bool
var findDepth int
var findTree bool

func init() {
	findCmd.Flags().BoolVar(&findAll, "all", false, "List every env file under the project root")
	findCmd.Flags().BoolVar(&findTree, "tree", false, "With --all, print the files as a directory tree")
	findCmd.Flags().IntVar(&findDepth, "max-depth", 0, "Stop after this many directories (0 means no limit)")
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	if findAll {
		return runFindAll(cmd, args)
	}
	if findTree {
		return errors.New("--tree requires --all")
	}
	if len(args) > 1 {
		return errors.New("find takes at most one filename without --all")
	}

	name := dotenv.DefaultFilename
	if len(args) == 1 {
		name = args[0]
	}
	path, err := dotenv.FindN(rootDir, name, findDepth)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), path)
	return nil
}

func runFindAll(cmd *cobra.Command, patterns []string) error {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	root, err := discover.FindRoot(dir)
	if err != nil {
		return err
	}
	files, err := discover.Walk(root)
	if err != nil {
		return err
	}

	var rels []string
	for _, f := range files {
		if len(patterns) > 0 && !discover.Match(root, f, patterns) {
			continue
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			rel = f
		}
		rels = append(rels, rel)
	}

	out := stdout(cmd)
	if findTree {
		if len(rels) == 0 {
			fmt.Fprintln(out, tui.Warning("No env files found."))
			return nil
		}
		fmt.Fprintln(out, tui.RenderFileTree(tui.BuildFileTree(rels)))
		return nil
	}
	for _, rel := range rels {
		fmt.Fprintln(out, rel)
	}
	return nil
}
