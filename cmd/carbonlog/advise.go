package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carbonlog/carbonlog/internal/httpapi"
)

func newAdviseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "advise <username> <question>...",
		Short: "Ask the reduction advisor about the latest record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			reply, err := app.Tracker.Advise(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			return writeOutput(cmd, format, httpapi.FromReply(reply), func() {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, reply.Text)
				if len(reply.Citations) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Sources:")
					for _, c := range reply.Citations {
						fmt.Fprintf(out, "  - %s <%s>\n", c.Title, c.URI)
					}
				}
			})
		},
	}

	addFormatFlag(cmd, &format)

	return cmd
}
