package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/jackc/pgx/v5"
)

// RecordSuccess inserts the Attempt row and transitions the event to
// delivered, in one transaction (spec.md §4.2).
func (s *Store) RecordSuccess(ctx context.Context, eventID string, attemptNumber int, statusCode int, responseBody []byte, responseTimeMs int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning success transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	body := truncatedOrNil(responseBody)
	if _, err := tx.Exec(ctx, `
		INSERT INTO attempts (event_id, attempt_number, status_code, response_body, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, attemptNumber, statusCode, body, responseTimeMs); err != nil {
		return fmt.Errorf("inserting success attempt: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE events
		SET status = 'delivered', attempt_count = $1, last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2
	`, attemptNumber, eventID); err != nil {
		return fmt.Errorf("marking event delivered: %w", err)
	}

	return tx.Commit(ctx)
}

// RecordFailure inserts the Attempt row and either reschedules the event
// (attemptNumber < maxAttempts) or retires it to dead (spec.md §4.2, §4.5
// step f). Exactly one of statusCode/errMsg should be meaningful, mirroring
// the Sender's Outcome.
func (s *Store) RecordFailure(ctx context.Context, eventID string, attemptNumber int, statusCode *int, responseBody []byte, errMsg string, responseTimeMs int, maxAttempts int, nextRetryDelay time.Duration) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning failure transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	body := truncatedOrNil(responseBody)
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO attempts (event_id, attempt_number, status_code, response_body, error, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, eventID, attemptNumber, statusCode, body, errPtr, responseTimeMs); err != nil {
		return fmt.Errorf("inserting failure attempt: %w", err)
	}

	lastError := errMsg
	if lastError == "" && statusCode != nil {
		lastError = fmt.Sprintf("received status %d", *statusCode)
	}

	if attemptNumber >= maxAttempts {
		if _, err := tx.Exec(ctx, `
			UPDATE events
			SET status = 'dead', attempt_count = $1, last_error = $2, next_retry_at = NULL, updated_at = NOW()
			WHERE id = $3
		`, attemptNumber, lastError, eventID); err != nil {
			return fmt.Errorf("marking event dead: %w", err)
		}
	} else {
		nextRetryAt := time.Now().Add(nextRetryDelay)
		if _, err := tx.Exec(ctx, `
			UPDATE events
			SET status = 'pending', attempt_count = $1, last_error = $2, next_retry_at = $3, updated_at = NOW()
			WHERE id = $4
		`, attemptNumber, lastError, nextRetryAt, eventID); err != nil {
			return fmt.Errorf("rescheduling event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func truncatedOrNil(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}

// ListAttempts returns attempts for an event, newest first.
func (s *Store) ListAttempts(ctx context.Context, eventID string, limit int) ([]domain.Attempt, error) {
	query := `SELECT id, event_id, attempt_number, status_code, response_body, error, response_time_ms, created_at FROM attempts`
	args := []interface{}{}

	if eventID != "" {
		query += " WHERE event_id = $1"
		args = append(args, eventID)
	}
	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.Attempt{}
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.EventID, &a.AttemptNumber, &a.StatusCode, &a.ResponseBody, &a.Error, &a.ResponseTimeMs, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// GetAttempt returns a single attempt by id.
func (s *Store) GetAttempt(ctx context.Context, id string) (*domain.Attempt, error) {
	var a domain.Attempt
	err := s.pool.QueryRow(ctx, `
		SELECT id, event_id, attempt_number, status_code, response_body, error, response_time_ms, created_at
		FROM attempts WHERE id = $1
	`, id).Scan(&a.ID, &a.EventID, &a.AttemptNumber, &a.StatusCode, &a.ResponseBody, &a.Error, &a.ResponseTimeMs, &a.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying attempt: %w", err)
	}
	return &a, nil
}
