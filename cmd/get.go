package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
)

var getCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Print the value of one variable",
	Long: `Load env files and print the value KEY has afterwards, as a program
calling dotenv and then reading its environment would see it.

Without KEY on a terminal, pick a key from the loaded files interactively.

Formats:
  raw    the value only (default; for scripts: $(dotenvy get KEY))
  json   {"key": ..., "value": ...}
  shell  KEY='value'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

var getFormat string
var getMasked bool

func init() {
	getCmd.Flags().StringVar(&getFormat, "format", "raw", "Output format: raw, json, or shell")
	getCmd.Flags().BoolVar(&getMasked, "masked", false, "Mask the value if it looks like a secret")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	switch getFormat {
	case "raw", "json", "shell":
	default:
		return fmt.Errorf("unknown format %q: expected raw, json, or shell", getFormat)
	}

	target, err := resolveTarget()
	if err != nil {
		return err
	}
	res, err := loadTarget(target, nil, false)
	if err != nil {
		return err
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		if !isTerminal() {
			return errors.New("KEY is required when not running in a terminal")
		}
		key, err = tui.SelectKey("Select a variable", sortedKeys(res.Loaded))
		if errors.Is(err, tui.ErrNoChoices) {
			return errors.New("no variables were loaded")
		}
		if err != nil {
			return err
		}
	}

	value, err := dotenv.EnvMap(res.Env).Var(key)
	if err != nil {
		return err
	}
	if getMasked && runenv.NewClassifier().Sensitive(key, value) {
		value = runenv.MaskSecretValue(value)
	}

	out := stdout(cmd)
	switch getFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]string{"key": key, "value": value})
	case "shell":
		_, err = fmt.Fprintf(out, "%s=%s\n", key, shellQuote(value))
	default:
		_, err = fmt.Fprint(out, value)
	}
	return err
}
