package main

import (
	"github.com/spf13/cobra"

	"github.com/carbonlog/carbonlog/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for carbonlog over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			return mcp.NewServer(app.Tracker, version).Run(cmd.Context())
		},
	}

	return cmd
}
