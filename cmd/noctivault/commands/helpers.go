package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/pkg/localstore"
)

// keyFlags holds the key-material flags shared by the local subcommands.
type keyFlags struct {
	keyFile    string
	passphrase string
	prompt     bool
}

func (f *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.keyFile, "key-file", "", "Path to a 256-bit key file")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "Passphrase protecting the store")
	cmd.Flags().BoolVar(&f.prompt, "prompt", false, "Prompt for the passphrase on stdin")
}

// material turns the flags into key material. Without flags it falls back to
// the discovery chain (keyring, key files, environment) anchored at the
// directory containing base.
func (f *keyFlags) material(cfg *config.Config, base string) (*localstore.KeyMaterial, error) {
	if f.keyFile != "" && f.passphrase != "" {
		return nil, nverrors.UserError{
			Message:    "--key-file and --passphrase are mutually exclusive",
			Suggestion: "Pick a single source of key material",
		}
	}

	switch {
	case f.keyFile != "":
		material, err := localstore.KeyMaterialFromFile(f.keyFile)
		if err != nil {
			return nil, nverrors.UserError{
				Message:    fmt.Sprintf("Cannot read key file: %s", f.keyFile),
				Details:    err.Error(),
				Suggestion: "Generate one with 'noctivault key gen --out " + f.keyFile + "'",
			}
		}
		return material, nil
	case f.passphrase != "":
		return localstore.KeyMaterialFromPassphrase(f.passphrase), nil
	case f.prompt:
		if cfg.NonInteractive {
			return nil, nverrors.UserError{
				Message:    "Cannot prompt for a passphrase in non-interactive mode",
				Suggestion: "Pass --passphrase or --key-file, or set " + localstore.EnvPassphrase,
			}
		}
		passphrase, err := readPassphrase(os.Stdin, os.Stderr)
		if err != nil {
			return nil, err
		}
		return localstore.KeyMaterialFromPassphrase(passphrase), nil
	}

	return localstore.ResolveKeyMaterial(localstore.EncSettings{}, storeDir(base), os.Getenv)
}

// storeDir anchors the key discovery chain: the store directory itself, or
// the directory containing an explicit store or envelope file.
func storeDir(base string) string {
	if info, err := os.Stat(base); err == nil && info.IsDir() {
		return base
	}
	return filepath.Dir(base)
}

func readPassphrase(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Passphrase: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	passphrase := strings.TrimRight(line, "\r\n")
	if passphrase == "" {
		return "", nverrors.UserError{
			Message:    "Empty passphrase",
			Suggestion: "Provide a non-empty passphrase",
		}
	}
	return passphrase, nil
}
