package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate env files and report every bad line",
	Long: `Parse the env files to the end and print each line that fails, with its
location and a caret under the offending character. Exits 1 if any line
failed.

Examples:
  dotenvy check
  dotenvy check -f '**/.env*'`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var checkStrict bool

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail if any env file is missing")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}
	ids, err := resolveIdentities(target)
	if err != nil {
		return err
	}
	res, err := runenv.Check(target.Files, ids, checkStrict || target.Project.Strict)
	if err != nil {
		return err
	}
	recordHistory(target, history.OpCheck,
		history.WithFiles(res.Files),
		history.WithKeys(res.Keys),
		history.WithErrors(len(res.Problems)),
	)

	errOut := stderr(cmd)
	for _, p := range res.Problems {
		d, _ := tui.NewDiagnostic(p.File, p.Err)
		fmt.Fprintln(errOut, d.Render())
	}

	if len(res.Files) == 0 {
		fmt.Fprintln(errOut, tui.Warning("No env files found."))
		return nil
	}
	if !res.OK() {
		fmt.Fprintf(errOut, "%s %d problem(s) in %d file(s)\n", tui.Error("✗"), len(res.Problems), len(res.Files))
		return &exitError{code: 1}
	}
	fmt.Fprintf(stdout(cmd), "%s %d file(s), %d key(s)\n", tui.Success("✓"), len(res.Files), len(res.Keys))
	return nil
}
