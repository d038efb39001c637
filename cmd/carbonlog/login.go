package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Show a registered organisation and its sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			user, err := app.Tracker.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return writeOutput(cmd, format, user, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user.Username, user.Sector)
			})
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
