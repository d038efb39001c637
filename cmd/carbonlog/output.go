package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "format", formatTable, "Output format: table, json or yaml")
}

// writeOutput prints value in the requested format. renderTable handles the
// table format.
func writeOutput(cmd *cobra.Command, format string, value any, renderTable func()) error {
	switch format {
	case formatJSON:
		return outputJSON(cmd, value)
	case formatYAML:
		return outputYAML(cmd, value)
	case formatTable:
		renderTable()
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json, yaml)", format)
	}
}

func outputJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// outputYAML goes through JSON first so records keep their submitted shape.
func outputYAML(cmd *cobra.Command, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}
