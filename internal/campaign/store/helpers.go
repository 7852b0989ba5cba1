package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"herald/internal/campaign"
)

func scanJob(scanner interface{ Scan(dest ...any) error }) (*campaign.Job, error) {
	var (
		id             string
		statusStr      string
		stage          sql.NullString
		progress       float64
		message        sql.NullString
		submissionJSON string
		resultJSON     sql.NullString
		errorMessage   sql.NullString
		createdRaw     string
		updatedRaw     string
		startedRaw     sql.NullString
		finishedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&stage,
		&progress,
		&message,
		&submissionJSON,
		&resultJSON,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &campaign.Job{
		ID:           id,
		Status:       campaign.Status(statusStr),
		Stage:        campaign.Stage(stage.String),
		Progress:     progress,
		Message:      message.String,
		ErrorMessage: errorMessage.String,
	}

	if err := json.Unmarshal([]byte(submissionJSON), &job.Submission); err != nil {
		return nil, fmt.Errorf("unmarshal submission for job %s: %w", id, err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result campaign.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result for job %s: %w", id, err)
		}
		job.Result = &result
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
