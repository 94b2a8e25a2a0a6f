package commands

import (
	"os"

	"github.com/spf13/cobra"

	"gopherai-docqa/internal/bootstrap"
)

var (
	configFile string

	// loadCore is replaced in tests.
	loadCore = bootstrap.LoadCore
)

// NewRootCmd creates the docqa root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask questions over spreadsheets and documents",
		Long: `docqa answers questions over a local set of spreadsheets and documents.

Quantitative questions run against loaded tables, everything else is
answered from a vector index of the documents, with sources cited.
Configuration comes from configs/config.toml and the environment.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the TOML config file")

	cmd.AddCommand(NewChunkCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
