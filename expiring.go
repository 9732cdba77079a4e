package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/lethabomaepa11/rocketsales-sub001/config"
	"github.com/lethabomaepa11/rocketsales-sub001/pkg/logger"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
	"github.com/spf13/cobra"
)

func newExpiringCmd(configPath *string) *cobra.Command {
	var within int

	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "Print contracts approaching expiry as JSON",
		Long: `Print the expiring-soon summary for every Active contract.

Without --within a contract is listed while inside its own renewal notice
period. With --within N it is listed when it expires within N days.
Meant to be run by an external scheduler that forwards the report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			// stdout carries the report.
			slog.SetDefault(logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr))

			var window *int
			if cmd.Flags().Changed("within") {
				window = &within
			}
			return runExpiring(cmd, cfg, service.SystemClock{}, window)
		},
	}
	cmd.Flags().IntVar(&within, "within", 0, "report contracts expiring within this many days instead of their notice period")
	return cmd
}

func runExpiring(cmd *cobra.Command, cfg *config.Config, clock service.Clock, within *int) error {
	a, err := newApp(cmd.Context(), cfg, clock)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.alerts.Summary(cmd.Context(), within)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
