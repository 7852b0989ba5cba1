// Package campaign defines the domain model for outreach campaigns: the
// submission payload, the job lifecycle, and the enriched result assembled by
// the workflow pipeline.
package campaign

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a campaign job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the job can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusQueued:
		return StatusQueued, nil
	case StatusRunning:
		return StatusRunning, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// Stage identifies one phase of the campaign pipeline.
type Stage string

const (
	StageScrape   Stage = "scrape"
	StageResearch Stage = "research"
	StageGenerate Stage = "generate"
	StageFinalize Stage = "finalize"
)

// Credentials holds optional login details for a conference site that gates
// its participant list.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Participant is one outreach target. Identity is positional within a
// submission; the pipeline never mutates a Participant.
type Participant struct {
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Company    string `json:"company,omitempty"`
	Country    string `json:"country,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Sender describes who the outreach messages are written on behalf of.
type Sender struct {
	Name               string `json:"name"`
	Role               string `json:"role"`
	Company            string `json:"company"`
	CompanyDescription string `json:"company_description,omitempty"`
}

// Submission is the immutable input of one campaign job.
type Submission struct {
	EventName    string        `json:"event_name"`
	SourceURL    string        `json:"source_url,omitempty"`
	Credentials  *Credentials  `json:"credentials,omitempty"`
	Sender       Sender        `json:"sender"`
	Participants []Participant `json:"participants,omitempty"`
	SkipResearch bool          `json:"skip_research,omitempty"`
}

// NeedsScrape reports whether the scrape stage must run because the caller
// supplied no participant list.
func (s *Submission) NeedsScrape() bool {
	return len(s.Participants) == 0
}

// ResearchResult is the free-text synthesis produced for one participant.
type ResearchResult struct {
	Summary string   `json:"summary"`
	Sources []string `json:"sources,omitempty"`
}

// EnrichedParticipant pairs a Participant with its research record and
// generated message. A research failure records a ResearchNote and the
// participant still flows to drafting on raw fields; a failed draft carries
// a FailureNote and an empty Message. Either way the slot stays present so
// ordering and counts stay intact.
type EnrichedParticipant struct {
	Participant
	Research     *ResearchResult `json:"research,omitempty"`
	ResearchNote string          `json:"research_note,omitempty"`
	Message      string          `json:"message,omitempty"`
	FailureNote  string          `json:"failure_note,omitempty"`
}

// Failed reports whether this participant's work unit ended in an error.
func (e EnrichedParticipant) Failed() bool {
	return e.FailureNote != ""
}

// Metrics aggregates counts for a completed campaign.
type Metrics struct {
	Participants      int `json:"participants"`
	MessagesGenerated int `json:"messages_generated"`
	ItemFailures      int `json:"item_failures"`
	MessagesApproved  int `json:"messages_approved"`
	MessagesSent      int `json:"messages_sent"`
}

// Result is the terminal payload of a completed job.
type Result struct {
	Metrics     Metrics               `json:"metrics"`
	ApprovalRef string                `json:"approval_ref,omitempty"`
	Items       []EnrichedParticipant `json:"items"`
}

// Job is one background execution of the campaign pipeline. The store is the
// single owner of mutable job state; everything outside works on snapshots.
type Job struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Stage        Stage      `json:"stage,omitempty"`
	Progress     float64    `json:"progress"`
	Message      string     `json:"message,omitempty"`
	Submission   Submission `json:"submission"`
	Result       *Result    `json:"result,omitempty"`
	ErrorMessage string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
