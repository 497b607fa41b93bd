package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/pkg/localstore"
)

// NewKeyCommand creates the parent 'key' command
func NewKeyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage local store key files",
		Long: `Manage the key files that protect the encrypted local store.

Examples:
  noctivault key gen                       # Generate a key at the default location
  noctivault key gen --out ./local.key    # Generate a key at a specific path`,
	}

	cmd.AddCommand(
		NewKeyGenCommand(cfg),
	)

	return cmd
}

// NewKeyGenCommand creates the 'key gen' command
func NewKeyGenCommand(cfg *config.Config) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random 256-bit key file",
		Long: `Generate a fresh random key file for sealing the local store.

Without --out the key is written to the user-level default location
($HOME/.config/noctivault/local.key). The path written is printed so it
can be captured in scripts:

  KEY=$(noctivault key gen --out ./local.key)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := localstore.GenerateKey(out)
			if err != nil {
				return nverrors.UserError{
					Message:    "Failed to generate key file",
					Details:    err.Error(),
					Suggestion: "Check that the target directory is writable",
				}
			}

			cfg.Logger.Debug("generated key file at %s", path)
			fmt.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Path to write the key file (default: user config dir)")

	return cmd
}
