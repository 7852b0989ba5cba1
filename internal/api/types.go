package api

import (
	"herald/internal/campaign"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobSummary describes a campaign job in a transport-friendly format.
// Progress is expressed as a percentage so poll consumers can render it
// without knowing the store's internal fraction.
type JobSummary struct {
	ID         string  `json:"id"`
	Event      string  `json:"event"`
	Status     string  `json:"status"`
	Stage      string  `json:"stage,omitempty"`
	Percent    float64 `json:"percent"`
	Message    string  `json:"message,omitempty"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
	StartedAt  string  `json:"startedAt,omitempty"`
	FinishedAt string  `json:"finishedAt,omitempty"`
}

// JobStatusResponse is the poll payload for a single job. Result appears only
// once the job completed; Error only once it failed.
type JobStatusResponse struct {
	Job    JobSummary       `json:"job"`
	Result *campaign.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// SubmitResponse acknowledges an accepted campaign submission.
type SubmitResponse struct {
	Job JobSummary `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ApprovalRecord describes one review-queue entry.
type ApprovalRecord struct {
	ID              int64  `json:"id"`
	JobID           string `json:"jobId"`
	Event           string `json:"event"`
	Participant     string `json:"participant"`
	Company         string `json:"company,omitempty"`
	Role            string `json:"role,omitempty"`
	Message         string `json:"message"`
	ResearchSummary string `json:"researchSummary,omitempty"`
	Status          string `json:"status"`
	Sent            bool   `json:"sent"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// ApprovalListResponse wraps the review queue for one event.
type ApprovalListResponse struct {
	Records []ApprovalRecord `json:"records"`
}

// ApprovalUpdateRequest changes the review decision for one participant.
// Message, when present, replaces the drafted message (needs_edits flow).
type ApprovalUpdateRequest struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

// ApprovalUpdateResponse confirms a review decision.
type ApprovalUpdateResponse struct {
	Record ApprovalRecord `json:"record"`
}

// SendResponse reports how many approved messages were dispatched.
type SendResponse struct {
	Sent int64 `json:"sent"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon runtime information.
type HealthResponse struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	JobCounts    map[string]int `json:"jobCounts"`
	Stages       []StageHealth  `json:"stages"`
}
