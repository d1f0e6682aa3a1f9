package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/dotenv"
	"github.com/xmazu/dotenvy/internal/history"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <input>",
	Short: "Decrypt an age-encrypted env file",
	Long: `Decrypt an env file encrypted with dotenvy encrypt (or the age CLI).
Binary and armored files are both accepted. Prints to stdout unless -o is
given; -o with no value writes next to the input without the .age suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecrypt,
}

var decryptOutput string

func init() {
	decryptCmd.Flags().StringVarP(&decryptOutput, "output", "o", "-", "Output file (- for stdout)")
	decryptCmd.Flags().Lookup("output").NoOptDefVal = "auto"
	rootCmd.AddCommand(decryptCmd)
}

func runDecrypt(cmd *cobra.Command, args []string) (err error) {
	target, input, err := resolveSingle(args[0])
	if err != nil {
		return err
	}

	ids, err := resolveIdentities(target)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no age identity found: pass --identity or set $DOTENVY_AGE_KEY")
	}

	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()
	plain, err := dotenv.DecryptReader(in, ids...)
	if err != nil {
		return &dotenv.FileError{Path: input, Err: err}
	}

	out := stdout(cmd)
	output := decryptOutput
	if output == "auto" {
		output = decryptedName(input)
	}
	if output != "-" {
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
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

	if _, err := io.Copy(out, plain); err != nil {
		return fmt.Errorf("decrypt %s: %w", input, err)
	}
	recordHistory(target, history.OpDecrypt, history.WithFiles([]string{input}))
	return nil
}

// decryptedName strips the .age suffix, or appends .dec when there is none.
func decryptedName(path string) string {
	if name, ok := strings.CutSuffix(path, ".age"); ok {
		return name
	}
	return path + ".dec"
}
