package domain

import "time"

// Attempt is one completed (or transport-errored) delivery POST. Attempts
// are append-only: exactly one row exists per (EventID, AttemptNumber).
type Attempt struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	AttemptNumber  int       `json:"attempt_number"`
	StatusCode     *int      `json:"status_code,omitempty"`
	ResponseBody   *string   `json:"response_body,omitempty"`
	Error          *string   `json:"error,omitempty"`
	ResponseTimeMs *int      `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
