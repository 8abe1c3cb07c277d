// Package engine holds delivery-adjacent supporting logic that is not part
// of the core claim/dispatch state machine: currently just the per-target
// circuit breaker (spec.md Non-goals exclude per-target rate limiting, but
// a failure-reactive breaker is a different concern — see DESIGN.md).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker tracks consecutive delivery failures per target URL in
// Redis. It never marks an event dead or skips recording an attempt that
// was actually made — it only decides whether to attempt one at all.
//
//   - Closed: normal operation, failures are counted.
//   - Open: deliveries are deferred (not attempted) until the cooldown.
//   - Half-Open: one probe delivery is allowed; success closes, failure reopens.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
}

// State represents the current state of a target's circuit.
type State struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, logger *slog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 5,
		cooldownPeriod:   30 * time.Second,
	}
}

// Cooldown is the duration DeferEvent should push next_retry_at out by
// when AllowRequest reports the circuit open.
func (cb *CircuitBreaker) Cooldown() time.Duration {
	return cb.cooldownPeriod
}

func cbKey(targetURL string) string {
	return fmt.Sprintf("cb:%x", xxhash.Sum64String(targetURL))
}

// AllowRequest reports whether a delivery to targetURL should proceed.
// On any Redis error it fails open — the breaker is advisory, not a
// coordination mechanism the core delivery contract depends on.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, targetURL string) (string, bool) {
	key := cbKey(targetURL)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return StateClosed, true
	}

	state := data["state"]
	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	switch state {
	case StateOpen:
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
			cb.logger.Info("circuit breaker half-open", "target_url", targetURL)
			return StateHalfOpen, true
		}
		return StateOpen, false

	case StateHalfOpen:
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess resets the circuit to closed.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, targetURL string) {
	key := cbKey(targetURL)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()
	cb.redisClient.HSet(ctx, key, "state", StateClosed, "failures", 0)

	if state == StateHalfOpen {
		cb.logger.Info("circuit breaker closed (recovered)", "target_url", targetURL)
	}
}

// RecordFailure increments the failure count and opens the circuit once
// the threshold is reached, or immediately on a failed half-open probe.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, targetURL string) {
	key := cbKey(targetURL)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record circuit breaker failure", "error", err)
		return
	}

	cb.redisClient.HSet(ctx, key, "last_failed_at", time.Now().Unix())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	switch {
	case state == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker re-opened (half-open probe failed)", "target_url", targetURL)
	case failures >= int64(cb.failureThreshold):
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker opened", "target_url", targetURL, "failures", failures, "threshold", cb.failureThreshold)
	case state == "":
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// GetState returns the current circuit state for a target.
func (cb *CircuitBreaker) GetState(ctx context.Context, targetURL string) State {
	key := cbKey(targetURL)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return State{State: StateClosed, Failures: 0}
	}

	failures, _ := strconv.Atoi(data["failures"])
	state := data["state"]
	if state == "" {
		state = StateClosed
	}

	if state == StateOpen {
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			state = StateHalfOpen
		}
	}

	result := State{State: state, Failures: failures}
	if ts, ok := data["last_failed_at"]; ok && ts != "" {
		lastFailed, _ := strconv.ParseInt(ts, 10, 64)
		if lastFailed > 0 {
			result.LastFailedAt = time.Unix(lastFailed, 0).Format(time.RFC3339)
		}
	}

	return result
}
