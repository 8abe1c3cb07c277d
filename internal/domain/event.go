package domain

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a queued event. Once an event leaves
// StatusPending it never returns (spec invariant 4).
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusDead      Status = "dead"
)

// Event is a single queued webhook delivery. The database row is the only
// copy of its state; no in-process cache of an Event outlives a request.
type Event struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	TargetURL    string          `json:"target_url"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	NextRetryAt  *time.Time      `json:"next_retry_at,omitempty"`
	AttemptCount int             `json:"attempt_count"`
	LastError    *string         `json:"last_error,omitempty"`
}
