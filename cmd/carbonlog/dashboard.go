package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/carbonlog/carbonlog/internal/httpapi"
	"github.com/carbonlog/carbonlog/internal/render"
)

func newDashboardCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dashboard <username>",
		Short: "Show the latest record, recent history and largest changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			data, err := app.Tracker.Dashboard(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return writeOutput(cmd, format, httpapi.FromDashboard(data), func() {
				render.Dashboard(cmd.OutOrStdout(), data, render.TerminalWidth(os.Stdout))
			})
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
