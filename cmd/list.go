package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the variables defined by the env files",
	Long: `List the names of the variables the env files set. Variables that were
already in the environment and kept their value are not listed.

Examples:
  dotenvy list                    # key names
  dotenvy list --values --masked  # names and values, secrets masked
  dotenvy list --json -f .env.local`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listJSON bool
var listValues bool
var listMasked bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output JSON")
	listCmd.Flags().BoolVar(&listValues, "values", false, "Include values")
	listCmd.Flags().BoolVar(&listMasked, "masked", false, "Mask values that look like secrets (implies --values)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget()
	if err != nil {
		return err
	}
	res, err := loadTarget(target, nil, false)
	if err != nil {
		return err
	}

	showValues := listValues || listMasked
	classifier := runenv.NewClassifier()
	display := func(key string) string {
		v := res.Loaded[key]
		if listMasked && classifier.Sensitive(key, v) {
			return runenv.MaskSecretValue(v)
		}
		return v
	}
	keys := sortedKeys(res.Loaded)
	out := stdout(cmd)

	if listJSON {
		output := map[string]any{
			"files": res.Files,
			"keys":  keys,
			"count": len(keys),
		}
		if showValues {
			values := make(map[string]string, len(keys))
			for _, k := range keys {
				values[k] = display(k)
			}
			output["values"] = values
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(output)
	}

	if len(keys) == 0 {
		fmt.Fprintln(out, tui.Muted("No variables loaded."))
		return nil
	}
	for _, k := range keys {
		if showValues {
			fmt.Fprintf(out, "%s=%s\n", k, display(k))
		} else {
			fmt.Fprintln(out, k)
		}
	}
	return nil
}
