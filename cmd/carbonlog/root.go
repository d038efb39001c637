package main

import (
	"github.com/spf13/cobra"

	"github.com/carbonlog/carbonlog/internal/application"
	"github.com/carbonlog/carbonlog/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "carbonlog",
		Short:        "carbonlog - weekly carbon emission tracking",
		Long:         "carbonlog stores weekly emission records per organisation and reports how they change over time.",
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newAppendCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newAdviseCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

// openApp loads configuration from the environment and wires the tracker.
// Logs go to stderr so command output stays machine readable.
func openApp(cmd *cobra.Command) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	return application.Open(cfg, logger)
}
