package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/config"
	"github.com/xmazu/dotenvy/internal/discover"
	"github.com/xmazu/dotenvy/internal/history"
	"github.com/xmazu/dotenvy/internal/runenv"
	"github.com/xmazu/dotenvy/internal/tui"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <input>",
	Short: "Encrypt an env file with age",
	Long: `Encrypt an env file to one or more age recipients. The output defaults to
<input>.age, which dotenvy run decrypts transparently.

Recipients come from -r. Without -r, the file is encrypted to your own
identity (see --identity and $` + config.IdentityEnv + `). --generate creates a new
identity for this project and stores it in the dotenvy keys file.

The input is checked first; files with parse errors are not encrypted.

Examples:
  dotenvy encrypt --generate .env.production
  dotenvy encrypt -r age1... -r age1... -a .env.staging`,
	Args: cobra.ExactArgs(1),
	RunE: runEncrypt,
}

var encryptRecipients []string
var encryptArmor bool
var encryptOutput string
var encryptGenerate bool

func init() {
	encryptCmd.Flags().StringArrayVarP(&encryptRecipients, "recipient", "r", nil, "age recipient (can be repeated)")
	encryptCmd.Flags().BoolVarP(&encryptArmor, "armor", "a", false, "Write PEM-armored output")
	encryptCmd.Flags().StringVarP(&encryptOutput, "output", "o", "", "Output file (default <input>.age, - for stdout)")
	encryptCmd.Flags().BoolVar(&encryptGenerate, "generate", false, "Generate and store a new identity for this project")
	rootCmd.AddCommand(encryptCmd)
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	input := args[0]
	if discover.IsEncrypted(input) {
		return fmt.Errorf("%s is already encrypted", input)
	}

	target, inputPath, err := resolveSingle(input)
	if err != nil {
		return err
	}

	res, err := runenv.Check([]string{inputPath}, nil, true)
	if err != nil {
		return err
	}
	if !res.OK() {
		for _, p := range res.Problems {
			d, _ := tui.NewDiagnostic(p.File, p.Err)
			fmt.Fprintln(stderr(cmd), d.Render())
		}
		return fmt.Errorf("%s has %d parse error(s); not encrypting", input, len(res.Problems))
	}

	recipients, err := encryptionRecipients(cmd, target)
	if err != nil {
		return err
	}

	output := encryptOutput
	if output == "" {
		output = inputPath + ".age"
	}
	if err := encryptFile(stdout(cmd), inputPath, output, recipients); err != nil {
		return err
	}

	recordHistory(target, history.OpEncrypt, history.WithFiles([]string{inputPath}), history.WithKeys(res.Keys))
	if output != "-" {
		fmt.Fprintf(stderr(cmd), "%s encrypted %d key(s) to %s\n", tui.Success("✓"), len(res.Keys), output)
	}
	return nil
}

func encryptionRecipients(cmd *cobra.Command, target *discover.Target) ([]age.Recipient, error) {
	if len(encryptRecipients) > 0 {
		return config.ParseRecipients(encryptRecipients)
	}
	if encryptGenerate {
		id, err := generateProjectIdentity(cmd, target.Root)
		if err != nil {
			return nil, err
		}
		return []age.Recipient{id.Recipient()}, nil
	}

	ids, err := resolveIdentities(target)
	if err != nil {
		return nil, err
	}
	var recipients []age.Recipient
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			recipients = append(recipients, x.Recipient())
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("no recipients: pass -r, or use --generate to create an identity for this project")
	}
	return recipients, nil
}

func generateProjectIdentity(cmd *cobra.Command, root string) (*age.X25519Identity, error) {
	kf, err := config.LoadKeysFile()
	if err != nil {
		return nil, err
	}
	if _, exists := kf.Get(root); exists {
		if !isTerminal() {
			return nil, fmt.Errorf("an identity for %s already exists in %s", root, config.KeysPath())
		}
		ok, err := tui.Confirm(fmt.Sprintf("Replace the identity stored for %s?", root))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("aborted")
		}
	}

	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	if err := kf.Set(root, id.String()); err != nil {
		return nil, err
	}
	log.Info().Str("root", root).Str("recipient", id.Recipient().String()).Msg("stored new identity")
	fmt.Fprintf(stderr(cmd), "Public key: %s\n", tui.Key(id.Recipient().String()))
	return id, nil
}

// encryptFile writes to output, or to stdout when output is "-".
func encryptFile(stdout io.Writer, input, output string, recipients []age.Recipient) (err error) {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	out := stdout
	if output != "-" {
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	w, err := dotenv.EncryptWriter(out, encryptArmor, recipients...)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("encrypt %s: %w", input, err)
	}
	return w.Close()
}
