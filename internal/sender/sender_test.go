package sender_test

import (
	"context"
	"errors"
	"testing"

	"herald/internal/approvals"
	"herald/internal/campaign"
	"herald/internal/logging"
	"herald/internal/sender"
	"herald/internal/services"
	"herald/internal/testsupport"
)

func TestSendApprovedFlagsOnlyApprovedRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, testsupport.Submission(campaign.Participant{Name: "A", Company: "B"}))

	if err := st.ReplaceApprovals(ctx, job.ID, []approvals.Record{
		{Event: "DevWorld Summit 2026", Participant: "Ada Park", Message: "m1"},
		{Event: "DevWorld Summit 2026", Participant: "Sam Ortiz", Message: "m2"},
		{Event: "DevWorld Summit 2026", Participant: "Lena Fox", Message: "m3"},
	}); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Ada Park", "Lena Fox"} {
		if _, err := st.UpdateApproval(ctx, "DevWorld Summit 2026", name, approvals.StatusApproved, nil); err != nil {
			t.Fatal(err)
		}
	}

	svc := sender.NewService(cfg, st, logging.NewNop())
	count, err := svc.SendApproved(ctx, "DevWorld Summit 2026")
	if err != nil {
		t.Fatalf("SendApproved: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	// Second send has nothing left to do.
	count, err = svc.SendApproved(ctx, "DevWorld Summit 2026")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("resend count = %d, want 0", count)
	}

	records, _ := st.ApprovalsByEvent(ctx, "DevWorld Summit 2026")
	for _, record := range records {
		wantSent := record.Status == approvals.StatusApproved
		if record.Sent != wantSent {
			t.Fatalf("record %s sent = %v", record.Participant, record.Sent)
		}
	}
}

func TestSendApprovedRequiresEvent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := sender.NewService(cfg, st, logging.NewNop())
	_, err := svc.SendApproved(context.Background(), "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
