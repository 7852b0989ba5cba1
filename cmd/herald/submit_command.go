package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"herald/internal/campaign"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var jsonOut bool
	var skipResearch bool

	cmd := &cobra.Command{
		Use:   "submit <submission.json>",
		Short: "Submit an outreach campaign",
		Long: `Submit an outreach campaign from a JSON file ("-" reads stdin).

The submission names the event and the sender, and either lists participants
directly or provides a source URL for the daemon to scrape.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			submission, err := readSubmission(args[0])
			if err != nil {
				return err
			}
			if skipResearch {
				submission.SkipResearch = true
			}

			api, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := api.Submit(cmd.Context(), *submission)
			if err != nil {
				return err
			}

			if jsonOut && !watch {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "campaign %s accepted for %q\n", job.ID, job.Event)
			if !watch {
				fmt.Fprintf(cmd.OutOrStdout(), "poll with: herald status %s\n", job.ID)
				return nil
			}
			return followJob(cmd, api, job.ID, jsonOut)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the campaign finishes")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	cmd.Flags().BoolVar(&skipResearch, "skip-research", false, "Skip the research stage for this campaign")
	return cmd
}

func readSubmission(path string) (*campaign.Submission, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open submission: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var submission campaign.Submission
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&submission); err != nil {
		return nil, fmt.Errorf("parse submission: %w", err)
	}
	return &submission, nil
}
