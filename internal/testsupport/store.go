package testsupport

import (
	"context"
	"testing"

	"herald/internal/campaign"
	"herald/internal/campaign/store"
	"herald/internal/config"
)

// MustOpenStore opens a campaign store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// Submission returns a valid campaign submission with the given participants.
// With no participants it is a scrape-mode submission against an example URL.
func Submission(participants ...campaign.Participant) campaign.Submission {
	sub := campaign.Submission{
		EventName: "DevWorld Summit 2026",
		Sender: campaign.Sender{
			Name:               "Jordan Blake",
			Role:               "Head of Partnerships",
			Company:            "Northwind Systems",
			CompanyDescription: "Workflow tooling for platform teams.",
		},
		Participants: participants,
	}
	if len(participants) == 0 {
		sub.SourceURL = "https://devworld.example.com/speakers"
	}
	return sub
}

// NewJob creates a queued job for tests using the provided store.
func NewJob(t testing.TB, st *store.Store, sub campaign.Submission) *campaign.Job {
	t.Helper()

	job, err := st.CreateJob(context.Background(), sub)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}
