package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "send <event>",
		Short: "Dispatch all approved messages for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			count, err := api.SendApproved(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No approved messages to send")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d approved message(s)\n", count)
			return nil
		},
	}
}
