package api

import (
	"math"
	"time"

	"herald/internal/approvals"
	"herald/internal/campaign"
	"herald/internal/stage"
)

// FromJob converts a stored job to its API representation.
func FromJob(job *campaign.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	dto := JobSummary{
		ID:        job.ID,
		Event:     job.Submission.EventName,
		Status:    string(job.Status),
		Stage:     string(job.Stage),
		Percent:   math.Round(job.Progress*1000) / 10,
		Message:   job.Message,
		CreatedAt: FormatTime(job.CreatedAt),
		UpdatedAt: FormatTime(job.UpdatedAt),
	}
	if job.StartedAt != nil {
		dto.StartedAt = FormatTime(*job.StartedAt)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = FormatTime(*job.FinishedAt)
	}
	return dto
}

// FromJobs converts a slice of stored jobs into API DTOs.
func FromJobs(jobs []*campaign.Job) []JobSummary {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// StatusFromJob builds the poll response for one job. The result payload is
// withheld until the job is terminal so clients never act on partial output.
func StatusFromJob(job *campaign.Job) JobStatusResponse {
	resp := JobStatusResponse{Job: FromJob(job)}
	if job == nil {
		return resp
	}
	switch job.Status {
	case campaign.StatusCompleted:
		resp.Result = job.Result
	case campaign.StatusFailed:
		resp.Error = job.ErrorMessage
	}
	return resp
}

// FromApproval converts a review record to its API representation.
func FromApproval(record approvals.Record) ApprovalRecord {
	return ApprovalRecord{
		ID:              record.ID,
		JobID:           record.JobID,
		Event:           record.Event,
		Participant:     record.Participant,
		Company:         record.Company,
		Role:            record.Role,
		Message:         record.Message,
		ResearchSummary: record.ResearchSummary,
		Status:          string(record.Status),
		Sent:            record.Sent,
		UpdatedAt:       FormatTime(record.UpdatedAt),
	}
}

// FromApprovals converts a slice of review records into API DTOs.
func FromApprovals(records []approvals.Record) []ApprovalRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]ApprovalRecord, 0, len(records))
	for _, record := range records {
		out = append(out, FromApproval(record))
	}
	return out
}

// FromStageHealth converts stage readiness into API payloads.
func FromStageHealth(health []stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	out := make([]StageHealth, 0, len(health))
	for _, h := range health {
		out = append(out, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
