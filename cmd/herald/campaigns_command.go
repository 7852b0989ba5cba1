package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCampaignsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			jobs, err := api.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No campaigns")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					truncateText(job.Event, 40),
					job.Status,
					job.Stage,
					fmt.Sprintf("%.1f%%", job.Percent),
					truncateText(job.Message, 50),
				})
			}
			table := renderTable(
				[]string{"ID", "Event", "Status", "Stage", "Progress", "Activity"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, running, completed, failed)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
