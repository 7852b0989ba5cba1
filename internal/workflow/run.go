package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"herald/internal/approvals"
	"herald/internal/campaign"
	"herald/internal/logging"
	"herald/internal/services"
	"herald/internal/stage"
)

// Submit validates a submission, creates a queued job, and schedules it for
// background execution. It never waits on pipeline work.
func (m *Manager) Submit(ctx context.Context, submission campaign.Submission) (*campaign.Job, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil, errors.New("workflow is not running")
	}
	runCtx := m.runCtx
	m.mu.Unlock()

	job, err := m.store.CreateJob(ctx, submission)
	if err != nil {
		return nil, err
	}

	m.logger.Info("campaign submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEvent, submission.EventName),
		logging.Int("participants", len(submission.Participants)),
		logging.Bool("skip_research", submission.SkipResearch))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runJob(runCtx, job.ID)
	}()
	return job, nil
}

func (m *Manager) runJob(ctx context.Context, jobID string) {
	// Wait for a slot; the job stays visibly queued until one frees up.
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		m.finalizeOnShutdown(jobID)
		return
	}
	defer func() { <-m.slots }()

	started, err := m.store.MarkRunning(ctx, jobID)
	if err != nil {
		m.logger.Error("failed to start job",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
		return
	}
	if !started {
		// Already terminal, likely failed externally while queued.
		return
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil || job == nil {
		m.logger.Error("failed to load job after start",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
		return
	}

	jobCtx := ctx
	if deadline := m.cfg.JobDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	run := &stage.Run{Job: job}
	for _, handler := range m.stages.ordered() {
		if err := m.executeStage(jobCtx, handler, run); err != nil {
			m.failJob(ctx, run, handler.Name(), err)
			return
		}
	}

	m.finalize(ctx, run)
}

func (m *Manager) executeStage(ctx context.Context, handler stage.Handler, run *stage.Run) error {
	name := handler.Name()
	band := stageBands[name]

	// Status writes survive job-context cancellation so a timed-out job can
	// still record its failure.
	statusCtx := context.WithoutCancel(ctx)
	publish := func(fraction float64, message string) {
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		overall := band.lo + fraction*(band.hi-band.lo)
		if err := m.store.SetProgress(statusCtx, run.Job.ID, name, overall, message); err != nil {
			m.logger.Warn("progress update failed",
				logging.String(logging.FieldJobID, run.Job.ID),
				logging.String(logging.FieldStage, string(name)),
				logging.Error(err))
		}
	}

	// Scrape enforces its own minutes-scale deadline; research and generate
	// get the aggregate stage deadline on top of their per-item timeouts so
	// a slow collaborator cannot stretch one stage indefinitely.
	execCtx := ctx
	if name == campaign.StageResearch || name == campaign.StageGenerate {
		if timeout := m.cfg.StageTimeout(); timeout > 0 {
			var cancel context.CancelFunc
			execCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
	}

	m.logger.Info("stage started",
		logging.String(logging.FieldJobID, run.Job.ID),
		logging.String(logging.FieldStage, string(name)))
	publish(0, string(name)+" started")

	if err := handler.Execute(execCtx, run, publish); err != nil {
		return err
	}

	m.logger.Info("stage completed",
		logging.String(logging.FieldJobID, run.Job.ID),
		logging.String(logging.FieldStage, string(name)))
	publish(1, string(name)+" completed")
	return nil
}

func (m *Manager) failJob(ctx context.Context, run *stage.Run, stageName campaign.Stage, cause error) {
	message := failureMessage(stageName, cause)
	m.logger.Error("campaign failed",
		logging.String(logging.FieldJobID, run.Job.ID),
		logging.String(logging.FieldStage, string(stageName)),
		logging.Error(cause))

	statusCtx := context.WithoutCancel(ctx)
	if err := m.store.FailJob(statusCtx, run.Job.ID, stageName, message); err != nil {
		m.logger.Error("failed to record job failure",
			logging.String(logging.FieldJobID, run.Job.ID),
			logging.Error(err))
	}
	if err := m.notifier.NotifyCampaignFailed(statusCtx, run.Job.Submission.EventName, string(stageName), message); err != nil {
		m.logger.Warn("failure notification not delivered", logging.Error(err))
	}
}

func failureMessage(stageName campaign.Stage, cause error) string {
	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Sprintf("%s stage timed out", stageName)
	}
	if errors.Is(cause, context.Canceled) {
		return fmt.Sprintf("%s stage interrupted by shutdown", stageName)
	}
	category := services.Category(cause)
	detail := strings.TrimSpace(cause.Error())
	return fmt.Sprintf("%s stage failed (%s): %s", stageName, category, detail)
}

// finalizeOnShutdown handles jobs that never got a slot before Stop.
func (m *Manager) finalizeOnShutdown(jobID string) {
	if err := m.store.FailJob(context.Background(), jobID, "", "daemon stopped before execution"); err != nil {
		m.logger.Warn("failed to fail queued job on shutdown",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

// finalize aggregates metrics, publishes the approval queue, and completes
// the job.
func (m *Manager) finalize(ctx context.Context, run *stage.Run) {
	statusCtx := context.WithoutCancel(ctx)
	if err := m.store.SetProgress(statusCtx, run.Job.ID, campaign.StageFinalize, 0.97, "assembling results"); err != nil {
		m.logger.Warn("progress update failed",
			logging.String(logging.FieldJobID, run.Job.ID),
			logging.Error(err))
	}

	metrics := campaign.Metrics{Participants: len(run.Enriched)}
	records := make([]approvals.Record, 0, len(run.Enriched))
	for _, item := range run.Enriched {
		if item.Message != "" {
			metrics.MessagesGenerated++
		}
		if item.Failed() {
			metrics.ItemFailures++
			continue
		}
		record := approvals.Record{
			JobID:       run.Job.ID,
			Event:       run.Job.Submission.EventName,
			Participant: item.Name,
			Company:     item.Company,
			Role:        item.Role,
			Message:     item.Message,
			Status:      approvals.StatusPending,
		}
		if item.Research != nil {
			record.ResearchSummary = item.Research.Summary
		}
		records = append(records, record)
	}

	if err := m.store.ReplaceApprovals(statusCtx, run.Job.ID, records); err != nil {
		// The drafts still reach the caller through the job result; only the
		// review queue is degraded.
		m.logger.Error("failed to publish approval queue",
			logging.String(logging.FieldJobID, run.Job.ID),
			logging.Error(err))
	}

	result := &campaign.Result{
		Metrics:     metrics,
		ApprovalRef: approvals.DashboardRef(run.Job.ID),
		Items:       run.Enriched,
	}
	if err := m.store.CompleteJob(statusCtx, run.Job.ID, result); err != nil {
		m.logger.Error("failed to complete job",
			logging.String(logging.FieldJobID, run.Job.ID),
			logging.Error(err))
		return
	}

	m.logger.Info("campaign completed",
		logging.String(logging.FieldJobID, run.Job.ID),
		logging.String(logging.FieldEvent, run.Job.Submission.EventName),
		logging.Int("participants", metrics.Participants),
		logging.Int("messages_generated", metrics.MessagesGenerated),
		logging.Int("item_failures", metrics.ItemFailures))

	if err := m.notifier.NotifyCampaignCompleted(statusCtx, run.Job.Submission.EventName,
		metrics.MessagesGenerated, metrics.ItemFailures); err != nil {
		m.logger.Warn("completion notification not delivered", logging.Error(err))
	}
}
