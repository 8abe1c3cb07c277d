// Package sender issues the outbound webhook POST and normalizes every
// failure mode (non-2xx, transport error, timeout) into an Outcome.
package sender

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// ResponseBodyLimit bounds how much of a response body is retained, per
// spec.md §9's truncation-length decision.
const ResponseBodyLimit = 2048

// Outcome is the normalized result of one delivery attempt. Exactly one of
// StatusCode or Err is set.
type Outcome struct {
	StatusCode *int
	Body       []byte
	Err        string
}

// Success reports whether the outcome counts as a successful delivery:
// a 2xx status code with no transport error.
func (o Outcome) Success() bool {
	return o.Err == "" && o.StatusCode != nil && *o.StatusCode >= 200 && *o.StatusCode < 300
}

// Sender issues bounded-timeout HTTP POSTs. It never panics or returns a
// Go error — every failure mode is captured in the returned Outcome.
type Sender struct {
	client *http.Client
}

// New builds a Sender with the given total per-call timeout.
func New(timeout time.Duration) *Sender {
	return &Sender{client: &http.Client{Timeout: timeout}}
}

// Send issues a POST to targetURL with body and the given headers, returning
// a normalized Outcome. Never blocks past the Sender's configured timeout.
func (s *Sender) Send(ctx context.Context, targetURL string, body []byte, headers http.Header) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Outcome{Err: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, ResponseBodyLimit))
	status := resp.StatusCode
	return Outcome{StatusCode: &status, Body: respBody}
}
