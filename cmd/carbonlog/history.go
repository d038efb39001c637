package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/carbonlog/carbonlog/internal/render"
)

func newHistoryCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <username>",
		Short: "List every stored record in submission order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			records, err := app.Tracker.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return writeOutput(cmd, format, records, func() {
				render.History(cmd.OutOrStdout(), records, render.TerminalWidth(os.Stdout))
			})
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
