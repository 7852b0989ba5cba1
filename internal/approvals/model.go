// Package approvals models the human review step that sits between message
// generation and sending. Each completed campaign publishes one record per
// drafted message; reviewers approve, request edits, or rewrite the text
// before anything is sent.
package approvals

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review state of one drafted message.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusNeedsEdits Status = "needs_edits"
)

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusNeedsEdits:
		return StatusNeedsEdits, nil
	default:
		return "", fmt.Errorf("unknown approval status %q", value)
	}
}

// Record is one reviewable drafted message.
type Record struct {
	ID              int64     `json:"id"`
	JobID           string    `json:"job_id"`
	Event           string    `json:"event"`
	Participant     string    `json:"participant"`
	Company         string    `json:"company,omitempty"`
	Role            string    `json:"role,omitempty"`
	Message         string    `json:"message,omitempty"`
	ResearchSummary string    `json:"research_summary,omitempty"`
	Status          Status    `json:"status"`
	Sent            bool      `json:"sent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DashboardRef returns the reference string a completed job surfaces so
// pollers can find the review queue for its event.
func DashboardRef(jobID string) string {
	return "herald://approvals/" + jobID
}
