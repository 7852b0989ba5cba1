package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "report <job-id>",
		Short: "Show the post-campaign summary for a completed campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			rep, err := api.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, rep)
			}

			rows := [][]string{
				{"Participants", fmt.Sprintf("%d", rep.Metrics.Participants)},
				{"Messages generated", fmt.Sprintf("%d", rep.Metrics.MessagesGenerated)},
				{"Item failures", fmt.Sprintf("%d", rep.Metrics.ItemFailures)},
				{"Pending review", fmt.Sprintf("%d", rep.Pending)},
				{"Approved", fmt.Sprintf("%d", rep.Approved)},
				{"Needs edits", fmt.Sprintf("%d", rep.NeedsEdits)},
				{"Sent", fmt.Sprintf("%d", rep.Sent)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "campaign %s (%s)\n", rep.JobID, rep.Event)
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Count"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
