package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/history"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print export statements for the current shell",
	Long: `Print one "export KEY='value'" line per variable set by the env files,
quoted for POSIX shells.

  eval "$(dotenvy export)"`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}
	res, err := loadTarget(target, nil, false)
	if err != nil {
		return err
	}

	out := stdout(cmd)
	keys := sortedKeys(res.Loaded)
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "export %s=%s\n", k, shellQuote(res.Loaded[k])); err != nil {
			return err
		}
	}
	recordHistory(target, history.OpLoad, history.WithFiles(res.Files), history.WithKeys(keys))
	return nil
}
