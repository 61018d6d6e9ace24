// Package cli wires the locacoes commands.
package cli

import (
	"fmt"
	"os"

	"github.com/imobgestao/locacoes/backend/config"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
	"github.com/spf13/cobra"
)

// RootCmd builds the locacoes command tree
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locacoes",
		Short: "Contract lifecycle service for rental agencies",
		Long: `locacoes serves the rental administration API and keeps the stored
lifecycle status of every lease contract in line with its dates.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "path to the YAML configuration file")

	root.AddCommand(ServeCmd())
	root.AddCommand(ReconcileCmd())
	root.AddCommand(ClassifyCmd())
	root.AddCommand(HashPasswordCmd())

	return root
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config and initializes the global logger from it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, nil
}
