package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/pkg/localstore"
)

// NewLocalCommand creates the parent 'local' command
func NewLocalCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Seal, unseal, and verify the local mock store",
		Long: `Protect the plaintext local store with an encrypted envelope.

Sealed stores live next to the plaintext as ` + localstore.EncStoreFilename + `
and are preferred over the plaintext at resolve time.

Examples:
  noctivault local seal .                          # Seal the store in the current directory
  noctivault local seal store.yaml --rm-plain      # Seal and remove the plaintext
  noctivault local unseal store.yaml.enc           # Decrypt to stdout
  noctivault local verify store.yaml.enc           # Check the envelope opens`,
	}

	cmd.AddCommand(
		NewLocalSealCommand(cfg),
		NewLocalUnsealCommand(cfg),
		NewLocalVerifyCommand(cfg),
	)

	return cmd
}

// NewLocalSealCommand creates the 'local seal' command
func NewLocalSealCommand(cfg *config.Config) *cobra.Command {
	var (
		keys    keyFlags
		out     string
		rmPlain bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "seal PATH",
		Short: "Encrypt the plaintext local store",
		Long: `Encrypt the plaintext local store into a sealed envelope.

PATH is either the plaintext store file or a directory containing
` + localstore.StoreFilename + `. The sealed file is written next to the
plaintext with a .enc suffix unless --out overrides it. An existing
sealed file is only replaced with --force.

Examples:
  noctivault local seal . --key-file ./local.key
  noctivault local seal noctivault.local-store.yaml --passphrase hunter2
  noctivault local seal . --prompt --rm-plain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := args[0]

			material, err := keys.material(cfg, base)
			if err != nil {
				return err
			}
			defer material.Destroy()

			encPath, err := localstore.SealFile(base, material, localstore.SealOptions{
				Out:         out,
				RemovePlain: rmPlain,
				Force:       force,
			})
			if err != nil {
				if errors.Is(err, fs.ErrExist) {
					return nverrors.UserError{
						Message:    "Sealed store already exists",
						Details:    err.Error(),
						Suggestion: "Pass --force to replace it",
					}
				}
				return err
			}

			cfg.Logger.Debug("sealed store to %s", encPath)
			fmt.Println(encPath)
			return nil
		},
	}

	keys.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Path for the sealed store (default: PATH + .enc)")
	cmd.Flags().BoolVar(&rmPlain, "rm-plain", false, "Remove the plaintext store after sealing")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing sealed store")

	return cmd
}

// NewLocalUnsealCommand creates the 'local unseal' command
func NewLocalUnsealCommand(cfg *config.Config) *cobra.Command {
	var keys keyFlags

	cmd := &cobra.Command{
		Use:   "unseal ENC",
		Short: "Decrypt a sealed store to stdout",
		Long: `Decrypt a sealed store and write the plaintext to stdout.

The plaintext is written exactly as it was sealed, making the output
suitable for redirection:

  noctivault local unseal store.yaml.enc > store.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			material, err := keys.material(cfg, args[0])
			if err != nil {
				return err
			}
			defer material.Destroy()

			plaintext, err := localstore.UnsealFile(args[0], material)
			if err != nil {
				return err
			}

			_, err = os.Stdout.Write(plaintext)
			return err
		},
	}

	keys.register(cmd)

	return cmd
}

// NewLocalVerifyCommand creates the 'local verify' command
func NewLocalVerifyCommand(cfg *config.Config) *cobra.Command {
	var keys keyFlags

	cmd := &cobra.Command{
		Use:   "verify ENC",
		Short: "Check that a sealed store opens with the available key material",
		Long: `Verify that a sealed store decrypts with the available key material.

Prints OK when the envelope opens and FAIL otherwise. FAIL exits with a
nonzero status so the command can gate scripts and CI steps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			material, err := keys.material(cfg, args[0])
			if err != nil {
				return err
			}
			defer material.Destroy()

			ok, err := localstore.Verify(args[0], material)
			if err != nil {
				return err
			}

			if !ok {
				fmt.Println("FAIL")
				os.Exit(1)
			}

			fmt.Println("OK")
			return nil
		},
	}

	keys.register(cmd)

	return cmd
}
