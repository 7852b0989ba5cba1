package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"herald/internal/api"
	"herald/internal/campaign"
	"herald/internal/client"
)

const pollInterval = time.Second

// followJob polls a job until it reaches a terminal status, rendering
// progress on one line when stdout is a terminal.
func followJob(cmd *cobra.Command, api *client.Client, jobID string, jsonOut bool) error {
	out := cmd.OutOrStdout()
	interactive := isTerminal(out)

	var lastLine string
	for {
		status, err := api.Status(cmd.Context(), jobID)
		if err != nil {
			return err
		}

		line := fmt.Sprintf("[%s] %5.1f%% %s", status.Job.Stage, status.Job.Percent, status.Job.Message)
		if interactive {
			fmt.Fprintf(out, "\r%-80s", line)
		} else if line != lastLine {
			fmt.Fprintln(out, line)
		}
		lastLine = line

		switch campaign.Status(status.Job.Status) {
		case campaign.StatusCompleted:
			if interactive {
				fmt.Fprintln(out)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			printResult(out, status)
			return nil
		case campaign.StatusFailed:
			if interactive {
				fmt.Fprintln(out)
			}
			return fmt.Errorf("campaign %s failed: %s", jobID, status.Error)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(pollInterval):
		}
	}
}

func printResult(out io.Writer, status api.JobStatusResponse) {
	result := status.Result
	if result == nil {
		fmt.Fprintln(out, "campaign completed")
		return
	}
	fmt.Fprintf(out, "campaign %s completed\n", status.Job.ID)
	fmt.Fprintf(out, "  participants:       %d\n", result.Metrics.Participants)
	fmt.Fprintf(out, "  messages generated: %d\n", result.Metrics.MessagesGenerated)
	if result.Metrics.ItemFailures > 0 {
		fmt.Fprintf(out, "  item failures:      %d\n", result.Metrics.ItemFailures)
	}
	fmt.Fprintf(out, "  review queue:       %s\n", result.ApprovalRef)

	for _, item := range result.Items {
		if item.FailureNote != "" {
			fmt.Fprintf(out, "  ! %s: %s\n", item.Name, item.FailureNote)
		}
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func truncateText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
