package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show daemon health and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			health, err := api.Health(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, health)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "daemon:   running (pid %d)\n", health.PID)
			fmt.Fprintf(out, "database: %s\n", health.DatabasePath)
			for status, count := range health.JobCounts {
				fmt.Fprintf(out, "jobs %-10s %d\n", status+":", count)
			}
			for _, stage := range health.Stages {
				state := "ready"
				if !stage.Ready {
					state = "not ready: " + stage.Detail
				}
				fmt.Fprintf(out, "stage %-9s %s\n", stage.Name+":", state)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
