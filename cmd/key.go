package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/config"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/tui"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage age identities in the dotenvy keys file",
	Long: `Manage the age identities stored in the dotenvy config directory
(` + "`$" + config.ConfigDirEnv + "`" + ` or ~/.config/dotenvy/keys.yaml). Identities are stored by
project root, so .age files under each project decrypt with their own key.`,
}

var (
	keyAddFile string
	keyAddEnv  bool
)

var keyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store an identity for the current project",
	Long: `Store an age identity for the project containing the current directory.
Use this when a teammate shared the project key with you.

Input (one of):
  - interactive: run without flags and paste when prompted (input is hidden)
  - --file path to an age identity file
  - --env to read from $` + config.IdentityEnv,
	Args: cobra.NoArgs,
	RunE: runKeyAdd,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the identity stored for the current project",
	Long: `Print the identity stored for the current project, for example to hand
it to CI: export ` + config.IdentityEnv + `=$(dotenvy key show)`,
	Args: cobra.NoArgs,
	RunE: runKeyShow,
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with a stored identity and their public keys",
	Args:  cobra.NoArgs,
	RunE:  runKeyList,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyAddCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyListCmd)

	keyAddCmd.Flags().StringVar(&keyAddFile, "from-file", "", "Read the identity from an age identity file")
	keyAddCmd.Flags().BoolVar(&keyAddEnv, "env", false, "Read the identity from $"+config.IdentityEnv)
}

func projectRoot() (string, error) {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	root, err := discover.FindRoot(dir)
	if err != nil {
		return "", fmt.Errorf("find project root: %w", err)
	}
	return root, nil
}

func runKeyAdd(cmd *cobra.Command, args []string) error {
	var raw string
	switch {
	case keyAddEnv:
		raw = os.Getenv(config.IdentityEnv)
		if raw == "" {
			return fmt.Errorf("%s is not set", config.IdentityEnv)
		}
	case keyAddFile != "":
		data, err := os.ReadFile(keyAddFile)
		if err != nil {
			return fmt.Errorf("read identity file: %w", err)
		}
		raw = string(data)
	default:
		if !isTerminal() {
			return errors.New("no input: pass --from-file or --env when not running in a terminal")
		}
		var err error
		raw, err = tui.SecretInput("Paste age identity (AGE-SECRET-KEY-...)")
		if err != nil {
			return err
		}
	}

	keyStr := parseIdentityFromInput(raw)
	if keyStr == "" {
		return errors.New("no age identity found in input")
	}
	identity, err := age.ParseX25519Identity(keyStr)
	if err != nil {
		return fmt.Errorf("invalid age identity: %w", err)
	}

	root, err := projectRoot()
	if err != nil {
		return err
	}
	kf, err := config.LoadKeysFile()
	if err != nil {
		return fmt.Errorf("load keys file: %w", err)
	}
	if err := kf.Set(root, keyStr); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}

	out := stdout(cmd)
	if marker := discover.FindMarker(root); marker != "" {
		fmt.Fprintf(out, "%s %s (%s)\n", tui.Label("Project:"), root, marker)
	}
	fmt.Fprintf(out, "%s identity stored for %s\n", tui.Success("✓"), root)
	fmt.Fprintf(out, "%s public key: %s\n", tui.Muted("  "), tui.Key(identity.Recipient().String()))
	return nil
}

// parseIdentityFromInput returns the first AGE-SECRET-KEY line, also when
// it is written as DOTENVY_AGE_KEY=... or inside an identity file with
// comments.
func parseIdentityFromInput(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if _, v, ok := strings.Cut(line, "="); ok && !strings.HasPrefix(line, "AGE-") {
			line = strings.Trim(strings.TrimSpace(v), `"'`)
		}
		if strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			return line
		}
	}
	return ""
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	kf, err := config.LoadKeysFile()
	if err != nil {
		return fmt.Errorf("load keys file: %w", err)
	}
	key, found := kf.Get(root)
	if !found {
		return fmt.Errorf("no identity stored for %s - add one with 'dotenvy key add'", root)
	}
	fmt.Fprintln(stdout(cmd), key)
	return nil
}

func runKeyList(cmd *cobra.Command, args []string) error {
	kf, err := config.LoadKeysFile()
	if err != nil {
		return fmt.Errorf("load keys file: %w", err)
	}
	out := stdout(cmd)
	roots := kf.List()
	if len(roots) == 0 {
		fmt.Fprintln(out, tui.Muted("No identities stored."))
		return nil
	}
	for _, root := range roots {
		key, _ := kf.Get(root)
		recipient := tui.Error("invalid")
		if id, err := age.ParseX25519Identity(key); err == nil {
			recipient = tui.Key(id.Recipient().String())
		}
		fmt.Fprintf(out, "%s  %s\n", root, recipient)
	}
	return nil
}
