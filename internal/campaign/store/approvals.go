package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"herald/internal/approvals"
)

const approvalColumns = "id, job_id, event, participant, company, role, message, research_summary, status, sent, created_at, updated_at"

// ReplaceApprovals publishes the review queue for a completed job, replacing
// any records from an earlier run of the same job.
func (s *Store) ReplaceApprovals(ctx context.Context, jobID string, records []approvals.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approvals tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM approvals WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clear approvals: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, record := range records {
		status := record.Status
		if status == "" {
			status = approvals.StatusPending
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO approvals (job_id, event, participant, company, role, message, research_summary, status, sent, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			jobID,
			record.Event,
			record.Participant,
			nullableString(record.Company),
			nullableString(record.Role),
			nullableString(record.Message),
			nullableString(record.ResearchSummary),
			string(status),
			boolToInt(record.Sent),
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert approval for %q: %w", record.Participant, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approvals: %w", err)
	}
	return nil
}

// ApprovalsByEvent returns the review queue for an event in insertion order.
func (s *Store) ApprovalsByEvent(ctx context.Context, event string) ([]approvals.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE event = ? ORDER BY id`,
		event,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var records []approvals.Record
	for rows.Next() {
		record, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ApprovalsByJob returns the review queue published by one job.
func (s *Store) ApprovalsByJob(ctx context.Context, jobID string) ([]approvals.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals by job: %w", err)
	}
	defer rows.Close()

	var records []approvals.Record
	for rows.Next() {
		record, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetApproval fetches one record by event and participant name. A missing
// record returns (nil, nil).
func (s *Store) GetApproval(ctx context.Context, event, participant string) (*approvals.Record, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+approvalColumns+` FROM approvals WHERE event = ? AND participant = ? ORDER BY id DESC LIMIT 1`,
		event,
		participant,
	)
	record, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return &record, nil
}

// UpdateApproval records a review decision and, optionally, an edited
// message text. Returns false when no matching record exists.
func (s *Store) UpdateApproval(ctx context.Context, event, participant string, status approvals.Status, editedMessage *string) (bool, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		res sql.Result
		err error
	)
	if editedMessage != nil {
		res, err = s.db.ExecContext(
			ctx,
			`UPDATE approvals SET status = ?, message = ?, updated_at = ? WHERE event = ? AND participant = ?`,
			string(status), *editedMessage, timestamp, event, participant,
		)
	} else {
		res, err = s.db.ExecContext(
			ctx,
			`UPDATE approvals SET status = ?, updated_at = ? WHERE event = ? AND participant = ?`,
			string(status), timestamp, event, participant,
		)
	}
	if err != nil {
		return false, fmt.Errorf("update approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update approval rows: %w", err)
	}
	return affected > 0, nil
}

// MarkApprovedSent flags every approved, unsent record for an event as sent
// and returns how many were flagged.
func (s *Store) MarkApprovedSent(ctx context.Context, event string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE approvals SET sent = 1, updated_at = ? WHERE event = ? AND status = ? AND sent = 0`,
		timestamp,
		event,
		string(approvals.StatusApproved),
	)
	if err != nil {
		return 0, fmt.Errorf("mark sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark sent rows: %w", err)
	}
	return affected, nil
}

func scanApproval(scanner interface{ Scan(dest ...any) error }) (approvals.Record, error) {
	var (
		record          approvals.Record
		company         sql.NullString
		role            sql.NullString
		message         sql.NullString
		researchSummary sql.NullString
		statusStr       string
		sent            int
		createdRaw      string
		updatedRaw      string
	)

	if err := scanner.Scan(
		&record.ID,
		&record.JobID,
		&record.Event,
		&record.Participant,
		&company,
		&role,
		&message,
		&researchSummary,
		&statusStr,
		&sent,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return approvals.Record{}, err
	}

	record.Company = company.String
	record.Role = role.String
	record.Message = message.String
	record.ResearchSummary = researchSummary.String
	record.Status = approvals.Status(statusStr)
	record.Sent = sent != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
