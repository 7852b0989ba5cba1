package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"herald/internal/api"
	"herald/internal/campaign"
	"herald/internal/config"
	"herald/internal/logging"
	"herald/internal/report"
	"herald/internal/stage"
	"herald/internal/testsupport"
	"herald/internal/workflow"
)

type stubHandler struct {
	name    campaign.Stage
	execute func(ctx context.Context, run *stage.Run, publish stage.Progress) error
}

func (h *stubHandler) Name() campaign.Stage { return h.name }

func (h *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(string(h.name))
}

func (h *stubHandler) Execute(ctx context.Context, run *stage.Run, publish stage.Progress) error {
	if h.execute == nil {
		return nil
	}
	return h.execute(ctx, run, publish)
}

func pipelineStubs() workflow.StageSet {
	return workflow.StageSet{
		Scrape: &stubHandler{name: campaign.StageScrape, execute: func(_ context.Context, run *stage.Run, _ stage.Progress) error {
			run.Participants = run.Job.Submission.Participants
			return nil
		}},
		Research: &stubHandler{name: campaign.StageResearch, execute: func(_ context.Context, run *stage.Run, _ stage.Progress) error {
			run.Enriched = make([]campaign.EnrichedParticipant, len(run.Participants))
			for i, p := range run.Participants {
				run.Enriched[i] = campaign.EnrichedParticipant{Participant: p}
			}
			return nil
		}},
		Generate: &stubHandler{name: campaign.StageGenerate, execute: func(_ context.Context, run *stage.Run, _ stage.Progress) error {
			for i := range run.Enriched {
				run.Enriched[i].Message = "hello " + run.Enriched[i].Name
			}
			return nil
		}},
	}
}

func startDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	wf := workflow.NewManager(cfg, st, pipelineStubs(), logging.NewNop())
	d, err := New(cfg, st, logging.NewNop(), wf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func doJSON(t *testing.T, method, rawURL, token string, body any, out any) int {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, rawURL, &payload)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, rawURL, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, rawURL, err)
		}
	}
	return resp.StatusCode
}

func pollUntilTerminal(t *testing.T, base, id string) api.JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var status api.JobStatusResponse
		if code := doJSON(t, http.MethodGet, base+"/api/campaigns/"+id, "", nil, &status); code != http.StatusOK {
			t.Fatalf("poll status code = %d", code)
		}
		switch campaign.Status(status.Job.Status) {
		case campaign.StatusCompleted, campaign.StatusFailed:
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", id)
	return api.JobStatusResponse{}
}

func TestDaemonSubmitPollApproveSendReport(t *testing.T) {
	d := startDaemon(t, testsupport.NewConfig(t))
	base := "http://" + d.Addr()

	submission := testsupport.Submission(
		campaign.Participant{Name: "Ada Park", Company: "Looply"},
		campaign.Participant{Name: "Sam Ortiz", Company: "Widget Labs"},
	)
	var submitted api.SubmitResponse
	if code := doJSON(t, http.MethodPost, base+"/api/campaigns", "", submission, &submitted); code != http.StatusAccepted {
		t.Fatalf("submit status code = %d", code)
	}
	if submitted.Job.ID == "" || submitted.Job.Status != string(campaign.StatusQueued) {
		t.Fatalf("submit response = %+v", submitted.Job)
	}

	final := pollUntilTerminal(t, base, submitted.Job.ID)
	if final.Job.Status != string(campaign.StatusCompleted) {
		t.Fatalf("job finished %s: %s", final.Job.Status, final.Error)
	}
	if final.Result == nil || final.Result.Metrics.MessagesGenerated != 2 {
		t.Fatalf("result = %+v", final.Result)
	}
	if final.Job.Percent != 100 {
		t.Fatalf("percent = %v", final.Job.Percent)
	}

	event := url.PathEscape(submission.EventName)
	var queue api.ApprovalListResponse
	if code := doJSON(t, http.MethodGet, base+"/api/approvals/"+event, "", nil, &queue); code != http.StatusOK {
		t.Fatalf("approvals status code = %d", code)
	}
	if len(queue.Records) != 2 {
		t.Fatalf("approval records = %d", len(queue.Records))
	}

	edited := "hello again Ada"
	var updated api.ApprovalUpdateResponse
	code := doJSON(t, http.MethodPut,
		base+"/api/approvals/"+event+"/"+url.PathEscape("Ada Park"), "",
		api.ApprovalUpdateRequest{Status: "approved", Message: &edited}, &updated)
	if code != http.StatusOK {
		t.Fatalf("approval update status code = %d", code)
	}
	if updated.Record.Status != "approved" || updated.Record.Message != edited {
		t.Fatalf("updated record = %+v", updated.Record)
	}

	var sent api.SendResponse
	if code := doJSON(t, http.MethodPost, base+"/api/send/"+event, "", nil, &sent); code != http.StatusOK {
		t.Fatalf("send status code = %d", code)
	}
	if sent.Sent != 1 {
		t.Fatalf("sent = %d, want 1", sent.Sent)
	}

	var rep report.CampaignReport
	if code := doJSON(t, http.MethodGet, base+"/api/reports/"+submitted.Job.ID, "", nil, &rep); code != http.StatusOK {
		t.Fatalf("report status code = %d", code)
	}
	if rep.Approved != 1 || rep.Sent != 1 || rep.Pending != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestDaemonRejectsInvalidSubmission(t *testing.T) {
	d := startDaemon(t, testsupport.NewConfig(t))
	base := "http://" + d.Addr()

	var payload map[string]string
	code := doJSON(t, http.MethodPost, base+"/api/campaigns", "", campaign.Submission{}, &payload)
	if code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", code)
	}
	if payload["error"] == "" {
		t.Fatal("error body missing")
	}
}

func TestDaemonUnknownCampaignIs404(t *testing.T) {
	d := startDaemon(t, testsupport.NewConfig(t))
	base := "http://" + d.Addr()

	code := doJSON(t, http.MethodGet, base+"/api/campaigns/not-a-job", "", nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("status code = %d, want 404", code)
	}
}

func TestDaemonBearerTokenRequired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "sekret"
	d := startDaemon(t, cfg)
	base := "http://" + d.Addr()

	if code := doJSON(t, http.MethodGet, base+"/api/health", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status code = %d, want 401", code)
	}
	var health api.HealthResponse
	if code := doJSON(t, http.MethodGet, base+"/api/health", "sekret", nil, &health); code != http.StatusOK {
		t.Fatalf("authenticated status code = %d, want 200", code)
	}
	if !health.Running || len(health.Stages) != 3 {
		t.Fatalf("health = %+v", health)
	}
}

func TestDaemonSweepsOrphanedJobsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	orphan := testsupport.NewJob(t, st, testsupport.Submission(campaign.Participant{Name: "A", Company: "B"}))
	if _, err := st.MarkRunning(ctx, orphan.ID); err != nil {
		t.Fatal(err)
	}

	wf := workflow.NewManager(cfg, st, pipelineStubs(), logging.NewNop())
	d, err := New(cfg, st, logging.NewNop(), wf)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	job, err := st.GetJob(ctx, orphan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != campaign.StatusFailed {
		t.Fatalf("orphan status = %s, want failed", job.Status)
	}
	if job.ErrorMessage != "daemon restarted" {
		t.Fatalf("orphan error = %q", job.ErrorMessage)
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	wf := workflow.NewManager(cfg, st, pipelineStubs(), logging.NewNop())
	second, err := New(cfg, st, logging.NewNop(), wf)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon instance should not start")
	} else if fmt.Sprint(err) == "" {
		t.Fatal("lock error should carry a message")
	}
}
