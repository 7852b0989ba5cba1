package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"herald/internal/campaign"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if watch {
				return followJob(cmd, api, args[0], jsonOut)
			}

			status, err := api.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "campaign: %s\n", status.Job.ID)
			fmt.Fprintf(out, "event:    %s\n", status.Job.Event)
			fmt.Fprintf(out, "status:   %s\n", status.Job.Status)
			if status.Job.Stage != "" {
				fmt.Fprintf(out, "stage:    %s\n", status.Job.Stage)
			}
			fmt.Fprintf(out, "progress: %.1f%%\n", status.Job.Percent)
			if status.Job.Message != "" {
				fmt.Fprintf(out, "activity: %s\n", status.Job.Message)
			}
			switch campaign.Status(status.Job.Status) {
			case campaign.StatusCompleted:
				printResult(out, status)
			case campaign.StatusFailed:
				fmt.Fprintf(out, "error:    %s\n", status.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the campaign finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
