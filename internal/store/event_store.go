package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/jackc/pgx/v5"
)

// InsertEvent creates a pending row, eligible for claim immediately
// (next_retry_at = now()), per spec.md §4.2/§9.
func (s *Store) InsertEvent(ctx context.Context, payload []byte, targetURL string) (*domain.Event, error) {
	var e domain.Event
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (payload, target_url, status, next_retry_at, attempt_count)
		VALUES ($1, $2, 'pending', NOW(), 0)
		RETURNING id, payload, target_url, status, created_at, updated_at, next_retry_at, attempt_count, last_error
	`, payload, targetURL).Scan(
		&e.ID, &e.Payload, &e.TargetURL, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.NextRetryAt, &e.AttemptCount, &e.LastError,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return &e, nil
}

// GetEvent is a point read for the lookup endpoint.
func (s *Store) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	var e domain.Event
	err := s.pool.QueryRow(ctx, `
		SELECT id, payload, target_url, status, created_at, updated_at, next_retry_at, attempt_count, last_error
		FROM events WHERE id = $1
	`, id).Scan(
		&e.ID, &e.Payload, &e.TargetURL, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.NextRetryAt, &e.AttemptCount, &e.LastError,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return &e, nil
}

// ListEvents returns events ordered newest-first, optionally filtered by
// status. Read-only; there is no mutation path outside the worker.
func (s *Store) ListEvents(ctx context.Context, status domain.Status, limit int) ([]domain.Event, error) {
	query := `SELECT id, payload, target_url, status, created_at, updated_at, next_retry_at, attempt_count, last_error FROM events`
	args := []interface{}{}

	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Payload, &e.TargetURL, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.NextRetryAt, &e.AttemptCount, &e.LastError); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// ListDistinctTargets returns the most recently active target URLs, for
// surfacing per-target circuit breaker state on the dashboard.
func (s *Store) ListDistinctTargets(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT target_url FROM (
			SELECT DISTINCT ON (target_url) target_url, created_at
			FROM events
			ORDER BY target_url, created_at DESC
		) t
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying distinct targets: %w", err)
	}
	defer rows.Close()

	targets := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
