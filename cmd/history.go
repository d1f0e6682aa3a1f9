package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what dotenvy loaded and ran in this project",
	Long: `Show the project's history log (.dotenvy/history.jsonl at the project root).
Entries record files, key names, commands and exit codes, never values.
Each line holds the hash of the previous one; --verify reports lines that
were edited or removed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyCount int
var historyVerify bool

func init() {
	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyVerify, "verify", false, "Verify the hash chain")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	root, err := discover.FindRoot(dir)
	if err != nil {
		return err
	}
	out := stdout(cmd)

	if historyVerify {
		result, err := history.Verify(root)
		if err != nil {
			return err
		}
		if !result.OK() {
			fmt.Fprintf(out, "%s chain broken at line(s) %v of %d\n", tui.Error("✗"), result.Breaks, result.TotalEntries)
			return &exitError{code: 1}
		}
		fmt.Fprintf(out, "%s %d entries verified\n", tui.Success("✓"), result.TotalEntries)
		return nil
	}

	entries, err := history.Show(root, historyCount)
	if errors.Is(err, history.ErrNoHistory) {
		fmt.Fprintln(out, tui.Muted("No history yet."))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stderr(cmd), tui.Header(fmt.Sprintf("History of %s (%d entries)", root, len(entries))))
	for _, e := range entries {
		fmt.Fprintln(out, formatEntry(e))
	}
	return nil
}

func formatEntry(e history.Entry) string {
	var b strings.Builder
	b.WriteString(tui.Muted(e.Timestamp.Local().Format(time.DateTime)))
	b.WriteString(" ")
	b.WriteString(tui.Label(fmt.Sprintf("%-8s", e.Op)))
	b.WriteString(" ")
	b.WriteString(tui.Muted(shortID(e.RunID)))
	if e.Tool != "" {
		b.WriteString(" tool=" + e.Tool)
	}
	if e.Command != "" {
		fmt.Fprintf(&b, " cmd=%q exit=%d", e.Command, e.ExitCode)
	}
	if e.Errors > 0 {
		b.WriteString(" " + tui.Error(fmt.Sprintf("errors=%d", e.Errors)))
	}
	if len(e.Files) > 0 {
		b.WriteString(" files=" + strings.Join(e.Files, ","))
	}
	if len(e.Keys) > 0 {
		keys := make([]string, len(e.Keys))
		for i, k := range e.Keys {
			keys[i] = tui.FormatKeyDisplay(k)
		}
		b.WriteString(" keys=" + strings.Join(keys, ","))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
