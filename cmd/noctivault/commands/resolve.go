package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/pkg/localstore"
	"github.com/systmms/noctivault/pkg/noctivault"
	"gopkg.in/yaml.v3"
)

// NewResolveCommand creates the 'resolve' command
func NewResolveCommand(cfg *config.Config) *cobra.Command {
	var (
		dir        string
		reveal     bool
		jsonOutput bool
		source     string
		credsFile  string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve declared secrets and print the tree",
		Long: `Resolve every declared secret reference and print the resulting tree.

Values are masked by default so the output is safe to eyeball or commit
to a ticket. Use --reveal to print the typed values instead.

Examples:
  noctivault resolve                       # Masked YAML tree from ./noctivault.yaml
  noctivault resolve --dir ./secrets       # References live elsewhere
  noctivault resolve --reveal --json       # Typed values as JSON
  noctivault resolve --source remote       # Fetch from Google Secret Manager`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := noctivault.New(noctivault.Settings{
				Source:          noctivault.Source(source),
				CredentialsFile: credsFile,
				Logger:          cfg.Logger,
			})

			ctx := context.Background()
			tree, err := client.Load(ctx, dir)
			if err != nil {
				return err
			}

			rendered := tree.ToMap(reveal)

			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(rendered); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
				return nil
			}

			data, err := yaml.Marshal(rendered)
			if err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory containing "+localstore.ReferencesFilename)
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print raw typed values instead of masks")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&source, "source", "local", "Secret source: local or remote")
	cmd.Flags().StringVar(&credsFile, "credentials-file", "", "Service-account key file for the remote source")

	return cmd
}
