package store

import (
	"context"
	"fmt"
)

// DeliveryMetrics holds aggregated queue statistics for the operator
// dashboard (supplemental — see SPEC_FULL.md).
type DeliveryMetrics struct {
	TotalEvents     int     `json:"total_events"`
	PendingCount    int     `json:"pending_count"`
	DeliveredCount  int     `json:"delivered_count"`
	DeadCount       int     `json:"dead_count"`
	TotalAttempts   int     `json:"total_attempts"`
	FailedAttempts  int     `json:"failed_attempts"`
	AvgResponseMs   float64 `json:"avg_response_ms"`
}

// GetDeliveryMetrics aggregates event and attempt counts from the
// database — there is no in-process counter to keep in sync.
func (s *Store) GetDeliveryMetrics(ctx context.Context) (*DeliveryMetrics, error) {
	var m DeliveryMetrics

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'delivered') AS delivered,
			COUNT(*) FILTER (WHERE status = 'dead') AS dead
		FROM events
	`).Scan(&m.TotalEvents, &m.PendingCount, &m.DeliveredCount, &m.DeadCount)
	if err != nil {
		return nil, fmt.Errorf("querying event metrics: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status_code IS NULL OR status_code >= 300) AS failed,
			COALESCE(AVG(response_time_ms) FILTER (WHERE response_time_ms IS NOT NULL), 0) AS avg_ms
		FROM attempts
	`).Scan(&m.TotalAttempts, &m.FailedAttempts, &m.AvgResponseMs)
	if err != nil {
		return nil, fmt.Errorf("querying attempt metrics: %w", err)
	}

	return &m, nil
}
