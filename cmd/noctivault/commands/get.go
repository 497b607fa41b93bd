package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/pkg/localstore"
	"github.com/systmms/noctivault/pkg/noctivault"
)

// NewGetCommand creates the 'get' command
func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		path      string
		dir       string
		hash      bool
		source    string
		credsFile string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a single resolved secret value",
		Long: `Resolve the declared secrets and print a single value.

Only the raw value is printed, making the command suitable for scripting.
With --hash the SHA3-256 display hash is printed instead, so two
deployments can compare a secret without revealing it.

Examples:
  # Get a single value
  noctivault get --path database_password

  # Nested paths use dots
  noctivault get --path redis.password

  # Compare without revealing
  noctivault get --path redis.password --hash

  # Use in scripts
  export DB_PASSWORD=$(noctivault get --path database_password)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return nverrors.UserError{
					Message:    "Secret path is required",
					Suggestion: "Use --path <dot.joined.path> to pick a secret",
				}
			}

			client := noctivault.New(noctivault.Settings{
				Source:          noctivault.Source(source),
				CredentialsFile: credsFile,
				Logger:          cfg.Logger,
			})

			ctx := context.Background()
			if _, err := client.Load(ctx, dir); err != nil {
				return err
			}

			if hash {
				digest, err := client.DisplayHash(path)
				if err != nil {
					return pathError(path, err)
				}
				fmt.Print(digest)
				return nil
			}

			value, err := client.Get(path)
			if err != nil {
				return pathError(path, err)
			}

			// Raw value output
			fmt.Print(value)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Dot-joined path of the secret (required)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory containing "+localstore.ReferencesFilename)
	cmd.Flags().BoolVar(&hash, "hash", false, "Print the SHA3-256 display hash instead of the value")
	cmd.Flags().StringVar(&source, "source", "local", "Secret source: local or remote")
	cmd.Flags().StringVar(&credsFile, "credentials-file", "", "Service-account key file for the remote source")

	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func pathError(path string, err error) error {
	return nverrors.UserError{
		Message:    fmt.Sprintf("No secret at path '%s'", path),
		Details:    err.Error(),
		Suggestion: "Run 'noctivault resolve' to list the available paths",
	}
}
