package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"herald/internal/campaign"
	"herald/internal/logging"
	"herald/internal/services"
	"herald/internal/stage"
	"herald/internal/testsupport"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]error
	all     error
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.all != nil {
		return "", f.all
	}
	for name, err := range f.failFor {
		if strings.Contains(userPrompt, name) {
			return "", err
		}
	}
	return "Hi there, see you at the conference.", nil
}

func newRun(participants ...campaign.Participant) *stage.Run {
	run := &stage.Run{
		Job:          &campaign.Job{ID: "job-1", Submission: testsupport.Submission(participants...)},
		Participants: participants,
	}
	run.Enriched = make([]campaign.EnrichedParticipant, len(participants))
	for i, p := range participants {
		run.Enriched[i] = campaign.EnrichedParticipant{Participant: p}
	}
	return run
}

func noProgress(float64, string) {}

func TestExecuteDraftsAllMessages(t *testing.T) {
	completer := &fakeCompleter{}
	s := New(testsupport.NewConfig(t), completer, logging.NewNop())

	run := newRun(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
	)
	if err := s.Execute(context.Background(), run, noProgress); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, item := range run.Enriched {
		if item.Message == "" || item.Failed() {
			t.Fatalf("slot %d = %+v", i, item)
		}
	}
}

func TestExecuteAnnotatesFailedSlot(t *testing.T) {
	completer := &fakeCompleter{failFor: map[string]error{
		"Sam Ortiz": services.Wrap(services.ErrTimeout, "generate", "complete", "deadline", nil),
	}}
	s := New(testsupport.NewConfig(t), completer, logging.NewNop())

	run := newRun(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
		campaign.Participant{Name: "Lena Fox", Company: "Orbit"},
	)
	if err := s.Execute(context.Background(), run, noProgress); err != nil {
		t.Fatalf("one failed draft must not fail the stage: %v", err)
	}

	failed := run.Enriched[1]
	if !failed.Failed() || failed.Message != "" {
		t.Fatalf("failed slot = %+v", failed)
	}
	if !strings.Contains(failed.FailureNote, "timeout") {
		t.Fatalf("failure note should carry the category: %q", failed.FailureNote)
	}
	if run.Enriched[0].Message == "" || run.Enriched[2].Message == "" {
		t.Fatal("healthy slots should carry drafts")
	}
}

func TestExecuteSystemicFailure(t *testing.T) {
	completer := &fakeCompleter{
		all: services.Wrap(services.ErrTransient, "generate", "complete", "connection refused", nil),
	}
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.ItemRetries = 0
	s := New(cfg, completer, logging.NewNop())

	run := newRun(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
	)
	err := s.Execute(context.Background(), run, noProgress)
	if err == nil {
		t.Fatal("unreachable collaborator should fail the stage")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v", err)
	}
}

func TestExecuteRejectsEmptyBatch(t *testing.T) {
	s := New(testsupport.NewConfig(t), &fakeCompleter{}, logging.NewNop())
	run := &stage.Run{Job: &campaign.Job{ID: "job-1", Submission: testsupport.Submission()}}
	err := s.Execute(context.Background(), run, noProgress)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPromptWithAndWithoutResearch(t *testing.T) {
	sender := campaign.Sender{Name: "Jordan", Role: "Head of Partnerships", Company: "Northwind", CompanyDescription: "Tooling."}

	withResearch := buildPrompt("DevWorld", campaign.EnrichedParticipant{
		Participant: campaign.Participant{Name: "Ada Park", Role: "CTO", Company: "Looply"},
		Research:    &campaign.ResearchResult{Summary: "Built the Looply platform."},
	}, sender)
	if !strings.Contains(withResearch, "RESEARCH SUMMARY") || !strings.Contains(withResearch, "Built the Looply platform.") {
		t.Fatalf("prompt missing research: %s", withResearch)
	}

	withoutResearch := buildPrompt("DevWorld", campaign.EnrichedParticipant{
		Participant: campaign.Participant{Name: "Ada Park", Company: "Looply"},
	}, sender)
	if strings.Contains(withoutResearch, "RESEARCH SUMMARY") {
		t.Fatal("prompt should not claim research when none exists")
	}
	if !strings.Contains(withoutResearch, "without inventing facts") {
		t.Fatal("prompt should instruct raw-field drafting")
	}
	for _, want := range []string{"DevWorld", "Jordan", "Northwind"} {
		if !strings.Contains(withoutResearch, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
