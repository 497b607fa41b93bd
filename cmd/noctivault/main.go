package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/cmd/noctivault/commands"
	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "noctivault",
		Short: "Resolve declared secrets from a sealed local store or Secret Manager",
		Long: `noctivault reads a declarative secret-refs file and resolves every reference
against a local mock store or Google Secret Manager, producing a masked
in-memory tree that only reveals values on explicit access.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	// Add commands
	rootCmd.AddCommand(
		commands.NewKeyCommand(cfg),
		commands.NewLocalCommand(cfg),
		commands.NewResolveCommand(cfg),
		commands.NewGetCommand(cfg),
	)

	return rootCmd.Execute()
}
