package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the binary without a
// subcommand starts the API server.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "contracts",
		Short: "Contract lifecycle and renewal service",
		Long: `Tracks contracts from Draft through Active to Renewed or Cancelled,
manages renewal workflows and reports contracts approaching expiry.

Available subcommands:
  serve    - Run the HTTP API (default)
  expiring - Print the expiring-soon summary as JSON`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newExpiringCmd(&configPath))
	return rootCmd
}
