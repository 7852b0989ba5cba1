package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herald/internal/campaign"
)

const jobColumns = "id, status, stage, progress, message, submission_json, result_json, error_message, created_at, updated_at, started_at, finished_at"

// CreateJob inserts a queued job for a validated submission and returns the
// stored snapshot.
func (s *Store) CreateJob(ctx context.Context, submission campaign.Submission) (*campaign.Job, error) {
	submissionJSON, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, status, stage, progress, message, submission_json, created_at, updated_at)
         VALUES (?, ?, NULL, 0, ?, ?, ?, ?)`,
		id,
		campaign.StatusQueued,
		"campaign queued",
		string(submissionJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetJob(ctx, id)
}

// GetJob fetches a job snapshot by identifier. A missing job returns
// (nil, nil).
func (s *Store) GetJob(ctx context.Context, id string) (*campaign.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) ListJobs(ctx context.Context, statuses ...campaign.Status) ([]*campaign.Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*campaign.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkRunning transitions a queued job to running and stamps its start time.
// Returns false when the job was not queued, which keeps the transition
// one-directional under concurrent access.
func (s *Store) MarkRunning(ctx context.Context, id string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, message = ?, updated_at = ?, started_at = ?
         WHERE id = ? AND status = ?`,
		campaign.StatusRunning,
		"campaign started",
		timestamp,
		timestamp,
		id,
		campaign.StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("mark running: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark running rows: %w", err)
	}
	return affected == 1, nil
}

// SetProgress records stage, progress, and message for a running job.
// Progress never moves backwards: a stale writer can update the message but
// cannot lower the published fraction.
func (s *Store) SetProgress(ctx context.Context, id string, stage campaign.Stage, progress float64, message string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET stage = ?, message = ?, updated_at = ?,
             progress = CASE WHEN ? > progress THEN ? ELSE progress END
         WHERE id = ? AND status = ?`,
		string(stage),
		message,
		timestamp,
		progress,
		progress,
		id,
		campaign.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// CompleteJob transitions a running job to completed with its final result
// payload and progress pinned to 1.0.
func (s *Store) CompleteJob(ctx context.Context, id string, result *campaign.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, progress = 1, message = ?, result_json = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status = ?`,
		campaign.StatusCompleted,
		"campaign completed",
		string(resultJSON),
		timestamp,
		timestamp,
		id,
		campaign.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete job rows: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("complete job %s: not running", id)
	}
	return nil
}

// FailJob transitions a non-terminal job to failed with the captured error.
func (s *Store) FailJob(ctx context.Context, id string, stage campaign.Stage, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, stage = ?, message = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		campaign.StatusFailed,
		nullableString(string(stage)),
		"campaign failed",
		errorMessage,
		timestamp,
		timestamp,
		id,
		campaign.StatusQueued,
		campaign.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail job rows: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("fail job %s: already terminal", id)
	}
	return nil
}

// FailInFlight marks every queued or running job as failed. Called once at
// daemon startup: in-flight work does not survive a restart, and an honest
// failed status beats a job stuck in running forever.
func (s *Store) FailInFlight(ctx context.Context, reason string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, message = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE status IN (?, ?)`,
		campaign.StatusFailed,
		"campaign failed",
		reason,
		timestamp,
		timestamp,
		campaign.StatusQueued,
		campaign.StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail in-flight rows: %w", err)
	}
	return affected, nil
}

// CountByStatus returns job counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[campaign.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[campaign.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[campaign.Status(status)] = count
	}
	return counts, rows.Err()
}
