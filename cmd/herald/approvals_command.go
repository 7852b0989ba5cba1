package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApprovalsCommand(ctx *commandContext) *cobra.Command {
	approvalsCmd := &cobra.Command{
		Use:   "approvals",
		Short: "Review drafted outreach messages",
	}

	approvalsCmd.AddCommand(newApprovalsListCommand(ctx))
	approvalsCmd.AddCommand(newApprovalsShowCommand(ctx))
	approvalsCmd.AddCommand(newApprovalsDecideCommand(ctx, "approve", "approved",
		"Approve a drafted message for sending"))
	approvalsCmd.AddCommand(newApprovalsDecideCommand(ctx, "needs-edits", "needs_edits",
		"Flag a drafted message as needing edits"))

	return approvalsCmd
}

func newApprovalsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <event>",
		Short: "List the review queue for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			records, err := api.Approvals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages awaiting review")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.Participant,
					truncateText(record.Company, 30),
					record.Status,
					yesNo(record.Sent),
					truncateText(record.Message, 60),
				})
			}
			table := renderTable(
				[]string{"Participant", "Company", "Status", "Sent", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func newApprovalsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event> <participant>",
		Short: "Show the full drafted message for one participant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			records, err := api.Approvals(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, record := range records {
				if record.Participant != args[1] {
					continue
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "participant: %s (%s, %s)\n", record.Participant, record.Role, record.Company)
				fmt.Fprintf(out, "status:      %s\n", record.Status)
				if record.ResearchSummary != "" {
					fmt.Fprintf(out, "research:    %s\n", record.ResearchSummary)
				}
				fmt.Fprintf(out, "\n%s\n", record.Message)
				return nil
			}
			return fmt.Errorf("no review record for %q at %q", args[1], args[0])
		},
	}
}

func newApprovalsDecideCommand(ctx *commandContext, use, status, short string) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   use + " <event> <participant>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			var edited *string
			if cmd.Flags().Changed("message") {
				edited = &message
			}
			record, err := api.UpdateApproval(cmd.Context(), args[0], args[1], status, edited)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", record.Participant, record.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Replace the drafted message text")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
