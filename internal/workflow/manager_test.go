package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"herald/internal/campaign"
	"herald/internal/logging"
	"herald/internal/services"
	"herald/internal/stage"
	"herald/internal/testsupport"
)

type fakeHandler struct {
	name    campaign.Stage
	execute func(ctx context.Context, run *stage.Run, publish stage.Progress) error
}

func (f *fakeHandler) Name() campaign.Stage { return f.name }

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(string(f.name))
}

func (f *fakeHandler) Execute(ctx context.Context, run *stage.Run, publish stage.Progress) error {
	if f.execute == nil {
		return nil
	}
	return f.execute(ctx, run, publish)
}

func passThroughScrape() *fakeHandler {
	return &fakeHandler{name: campaign.StageScrape, execute: func(_ context.Context, run *stage.Run, publish stage.Progress) error {
		run.Participants = run.Job.Submission.Participants
		publish(1, "scrape done")
		return nil
	}}
}

func buildSlotsResearch() *fakeHandler {
	return &fakeHandler{name: campaign.StageResearch, execute: func(_ context.Context, run *stage.Run, publish stage.Progress) error {
		run.Enriched = make([]campaign.EnrichedParticipant, len(run.Participants))
		for i, p := range run.Participants {
			run.Enriched[i] = campaign.EnrichedParticipant{Participant: p}
			if !run.Job.Submission.SkipResearch {
				run.Enriched[i].Research = &campaign.ResearchResult{Summary: "background for " + p.Name}
			}
		}
		publish(1, "research done")
		return nil
	}}
}

func draftAllGenerate() *fakeHandler {
	return &fakeHandler{name: campaign.StageGenerate, execute: func(_ context.Context, run *stage.Run, publish stage.Progress) error {
		for i := range run.Enriched {
			run.Enriched[i].Message = "hello " + run.Enriched[i].Name
		}
		publish(1, "generate done")
		return nil
	}}
}

func newManager(t *testing.T, stages StageSet, opts ...testsupport.ConfigOption) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	m := NewManager(cfg, st, stages, logging.NewNop())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want campaign.Status) *campaign.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := m.store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached %s, currently %+v", jobID, want, job)
	return nil
}

func TestSubmitReturnsImmediatelyAndCompletes(t *testing.T) {
	m := newManager(t, StageSet{
		Scrape:   passThroughScrape(),
		Research: buildSlotsResearch(),
		Generate: draftAllGenerate(),
	})

	start := time.Now()
	job, err := m.Submit(context.Background(), testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
	))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Submit blocked for %v", elapsed)
	}
	if job.Status != campaign.StatusQueued {
		t.Fatalf("initial status = %s", job.Status)
	}

	done := waitForStatus(t, m, job.ID, campaign.StatusCompleted)
	if done.Progress != 1 {
		t.Fatalf("progress = %v", done.Progress)
	}
	if done.Result == nil {
		t.Fatal("completed job should carry a result")
	}
	if done.Result.Metrics.Participants != 2 || done.Result.Metrics.MessagesGenerated != 2 {
		t.Fatalf("metrics = %+v", done.Result.Metrics)
	}
	if done.Result.ApprovalRef == "" {
		t.Fatal("result should carry an approval reference")
	}
	if len(done.Result.Items) != 2 || done.Result.Items[0].Name != "Ada Park" {
		t.Fatalf("items = %+v", done.Result.Items)
	}

	// Completion publishes the review queue.
	records, err := m.store.ApprovalsByJob(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("approval records = %d", len(records))
	}
}

func TestSubmitRejectsInvalidPayload(t *testing.T) {
	m := newManager(t, StageSet{
		Scrape:   passThroughScrape(),
		Research: buildSlotsResearch(),
		Generate: draftAllGenerate(),
	})

	_, err := m.Submit(context.Background(), campaign.Submission{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	jobs, _ := m.store.ListJobs(context.Background())
	if len(jobs) != 0 {
		t.Fatal("invalid submission must not create a job")
	}
}

func TestStageFailureFailsJobAndSkipsLaterStages(t *testing.T) {
	generateCalled := false
	m := newManager(t, StageSet{
		Scrape: passThroughScrape(),
		Research: &fakeHandler{name: campaign.StageResearch, execute: func(context.Context, *stage.Run, stage.Progress) error {
			return services.Wrap(services.ErrTimeout, "research", "lookup", "collaborator timed out", nil)
		}},
		Generate: &fakeHandler{name: campaign.StageGenerate, execute: func(context.Context, *stage.Run, stage.Progress) error {
			generateCalled = true
			return nil
		}},
	})

	job, err := m.Submit(context.Background(), testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
	))
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, m, job.ID, campaign.StatusFailed)
	if failed.Stage != campaign.StageResearch {
		t.Fatalf("failed stage = %q", failed.Stage)
	}
	if !strings.Contains(failed.ErrorMessage, "research") || !strings.Contains(failed.ErrorMessage, "timeout") {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	if generateCalled {
		t.Fatal("generate must not run after research fails")
	}
}

func TestStageDeadlineFailsStalledJob(t *testing.T) {
	generateCalled := false
	m := newManager(t, StageSet{
		Scrape: passThroughScrape(),
		Research: &fakeHandler{name: campaign.StageResearch, execute: func(ctx context.Context, run *stage.Run, publish stage.Progress) error {
			// A collaborator that never answers: the stage only returns when
			// the aggregate deadline cuts it off.
			<-ctx.Done()
			return ctx.Err()
		}},
		Generate: &fakeHandler{name: campaign.StageGenerate, execute: func(context.Context, *stage.Run, stage.Progress) error {
			generateCalled = true
			return nil
		}},
	}, testsupport.WithStageTimeout(1))

	job, err := m.Submit(context.Background(), testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
	))
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, m, job.ID, campaign.StatusFailed)
	if failed.Stage != campaign.StageResearch {
		t.Fatalf("failed stage = %q", failed.Stage)
	}
	if !strings.Contains(failed.ErrorMessage, "timed out") {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	if generateCalled {
		t.Fatal("generate must not run after the research deadline fires")
	}
}

func TestProgressIsMonotonicAcrossPolls(t *testing.T) {
	release := make(chan struct{})
	m := newManager(t, StageSet{
		Scrape: passThroughScrape(),
		Research: &fakeHandler{name: campaign.StageResearch, execute: func(ctx context.Context, run *stage.Run, publish stage.Progress) error {
			run.Enriched = make([]campaign.EnrichedParticipant, len(run.Participants))
			for i, p := range run.Participants {
				run.Enriched[i] = campaign.EnrichedParticipant{Participant: p}
			}
			for i := 1; i <= 10; i++ {
				publish(float64(i)/10, "step")
				time.Sleep(time.Millisecond)
			}
			<-release
			return nil
		}},
		Generate: draftAllGenerate(),
	})

	job, err := m.Submit(context.Background(), testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
	))
	if err != nil {
		t.Fatal(err)
	}

	var last float64
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := m.store.GetJob(context.Background(), job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if snapshot.Progress < last {
			t.Fatalf("progress went backwards: %v -> %v", last, snapshot.Progress)
		}
		last = snapshot.Progress
		if last >= 0.60 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	close(release)
	waitForStatus(t, m, job.ID, campaign.StatusCompleted)
}

func TestMaxActiveJobsKeepsOverflowQueued(t *testing.T) {
	var mu sync.Mutex
	active := 0
	peak := 0
	release := make(chan struct{})

	m := newManager(t, StageSet{
		Scrape: passThroughScrape(),
		Research: &fakeHandler{name: campaign.StageResearch, execute: func(ctx context.Context, run *stage.Run, publish stage.Progress) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			<-release
			mu.Lock()
			active--
			mu.Unlock()
			run.Enriched = make([]campaign.EnrichedParticipant, len(run.Participants))
			for i, p := range run.Participants {
				run.Enriched[i] = campaign.EnrichedParticipant{Participant: p}
			}
			return nil
		}},
		Generate: draftAllGenerate(),
	}, testsupport.WithMaxActiveJobs(1))

	first, err := m.Submit(context.Background(), testsupport.Submission(campaign.Participant{Name: "A", Company: "B"}))
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Submit(context.Background(), testsupport.Submission(campaign.Participant{Name: "C", Company: "D"}))
	if err != nil {
		t.Fatal(err)
	}

	waitForStatus(t, m, first.ID, campaign.StatusRunning)
	// The second submission must hold in queued while the slot is taken.
	snapshot, _ := m.store.GetJob(context.Background(), second.ID)
	if snapshot.Status != campaign.StatusQueued {
		t.Fatalf("second job status = %s, want queued", snapshot.Status)
	}

	close(release)
	waitForStatus(t, m, first.ID, campaign.StatusCompleted)
	waitForStatus(t, m, second.ID, campaign.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	if peak > 1 {
		t.Fatalf("peak concurrent jobs = %d, want 1", peak)
	}
}

func TestSubmitAfterStopFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	m := NewManager(cfg, st, StageSet{
		Scrape:   passThroughScrape(),
		Research: buildSlotsResearch(),
		Generate: draftAllGenerate(),
	}, logging.NewNop())
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.Stop()

	if _, err := m.Submit(context.Background(), testsupport.Submission(campaign.Participant{Name: "A", Company: "B"})); err == nil {
		t.Fatal("submit after stop should fail")
	}
}

func TestHealthAggregatesStages(t *testing.T) {
	m := newManager(t, StageSet{
		Scrape:   passThroughScrape(),
		Research: buildSlotsResearch(),
		Generate: draftAllGenerate(),
	})
	health := m.Health(context.Background())
	if len(health) != 3 {
		t.Fatalf("health entries = %d", len(health))
	}
	for _, h := range health {
		if !h.Ready {
			t.Fatalf("stage %s not ready: %s", h.Name, h.Detail)
		}
	}
}
