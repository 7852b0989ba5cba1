package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON renders an API payload for the --json output mode, indented for
// reading and piping alike.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
