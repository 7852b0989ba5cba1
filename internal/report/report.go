// Package report assembles the post-campaign summary: job metrics combined
// with the live state of the review queue.
package report

import (
	"context"
	"fmt"
	"time"

	"herald/internal/approvals"
	"herald/internal/campaign"
	"herald/internal/campaign/store"
	"herald/internal/services"
)

// CampaignReport summarizes one completed campaign.
type CampaignReport struct {
	JobID       string           `json:"job_id"`
	Event       string           `json:"event"`
	GeneratedAt time.Time        `json:"generated_at"`
	Metrics     campaign.Metrics `json:"metrics"`
	Pending     int              `json:"pending"`
	Approved    int              `json:"approved"`
	NeedsEdits  int              `json:"needs_edits"`
	Sent        int              `json:"sent"`
}

// Build produces the report for a completed job. Approval and sent counts
// come from the review queue, so the report reflects reviewer activity after
// completion.
func Build(ctx context.Context, st *store.Store, jobID string) (*CampaignReport, error) {
	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "", "report", "no job "+jobID, nil)
	}
	if job.Status != campaign.StatusCompleted || job.Result == nil {
		return nil, services.Wrap(services.ErrValidation, "", "report",
			fmt.Sprintf("job %s is %s, report needs a completed job", jobID, job.Status), nil)
	}

	rep := &CampaignReport{
		JobID:       job.ID,
		Event:       job.Submission.EventName,
		GeneratedAt: time.Now().UTC(),
		Metrics:     job.Result.Metrics,
	}

	records, err := st.ApprovalsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		switch record.Status {
		case approvals.StatusApproved:
			rep.Approved++
		case approvals.StatusNeedsEdits:
			rep.NeedsEdits++
		default:
			rep.Pending++
		}
		if record.Sent {
			rep.Sent++
		}
	}
	rep.Metrics.MessagesApproved = rep.Approved
	rep.Metrics.MessagesSent = rep.Sent
	return rep, nil
}
