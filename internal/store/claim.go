package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
)

// ClaimBatch atomically selects up to batchSize pending, due rows using
// SELECT ... FOR UPDATE SKIP LOCKED, then immediately advances each row's
// next_retry_at by lease and commits. This is the "lease-on-claim"
// discipline from spec.md §5: the claim transaction is brief, freeing the
// database connection for the HTTP call that follows. A worker that
// crashes after claiming but before recording an outcome leaves the row
// pending with next_retry_at set to the lease expiry — another worker
// reclaims it once the lease elapses, preserving at-least-once delivery.
//
// The returned Events reflect the pre-lease snapshot (AttemptCount,
// LastError, etc. as read at claim time); only the database row's
// next_retry_at has moved forward.
func (s *Store) ClaimBatch(ctx context.Context, batchSize int, now time.Time, lease time.Duration) ([]domain.Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, payload, target_url, status, created_at, updated_at, next_retry_at, attempt_count, last_error
		FROM events
		WHERE status = 'pending' AND next_retry_at <= $1
		ORDER BY next_retry_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("claiming batch: %w", err)
	}

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Payload, &e.TargetURL, &e.Status, &e.CreatedAt, &e.UpdatedAt, &e.NextRetryAt, &e.AttemptCount, &e.LastError); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning claimed event: %w", err)
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating claimed events: %w", err)
	}

	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	leaseUntil := now.Add(lease)
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE events SET next_retry_at = $1, updated_at = NOW() WHERE id = ANY($2)
	`, leaseUntil, ids); err != nil {
		return nil, fmt.Errorf("leasing claimed batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	return events, nil
}

// DeferEvent pushes a pending event's next_retry_at out without recording
// an attempt or incrementing attempt_count. Used when the circuit breaker
// is open for the event's target: no delivery was attempted, so no
// Attempt row is written (spec.md §4.5 "Shutdown" discusses the same
// principle for abandoned in-flight calls).
func (s *Store) DeferEvent(ctx context.Context, eventID string, nextRetryAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events SET next_retry_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`, nextRetryAt, eventID)
	if err != nil {
		return fmt.Errorf("deferring event: %w", err)
	}
	return nil
}
