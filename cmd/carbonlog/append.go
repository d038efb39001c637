package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newAppendCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "append <username>",
		Short: "Append an emission record read from a file or stdin",
		Long:  "Append one JSON emission record. The record is read from --file, or from stdin when no file is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if filePath != "" && filePath != "-" {
				raw, err = os.ReadFile(filePath)
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			if err := app.Tracker.Append(cmd.Context(), args[0], raw); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Data saved")
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read the record from this file instead of stdin")

	return cmd
}
