package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestCB(t *testing.T) (*CircuitBreaker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cb := NewCircuitBreaker(client, logger)
	return cb, mr
}

// openCircuitAndExpireCooldown opens the circuit for a target, then sets
// last_failed_at to 31 seconds ago so the cooldown has elapsed.
func openCircuitAndExpireCooldown(t *testing.T, cb *CircuitBreaker, mr *miniredis.Miniredis, targetURL string) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, targetURL)
	}

	pastTime := time.Now().Unix() - 31
	mr.HSet(cbKey(targetURL), "last_failed_at", fmt.Sprintf("%d", pastTime))
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()

	state, allowed := cb.AllowRequest(ctx, "http://example.com/webhook")

	if state != StateClosed {
		t.Errorf("expected state %q, got %q", StateClosed, state)
	}
	if !allowed {
		t.Error("new target should be allowed (circuit closed)")
	}
}

func TestCircuitBreaker_GetState_Default(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()

	state := cb.GetState(ctx, "http://unknown.example.com/webhook")

	if state.State != StateClosed {
		t.Errorf("expected state %q, got %q", StateClosed, state.State)
	}
	if state.Failures != 0 {
		t.Errorf("expected 0 failures, got %d", state.Failures)
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, target)
	}

	state, allowed := cb.AllowRequest(ctx, target)

	if state != StateOpen {
		t.Errorf("expected state %q, got %q", StateOpen, state)
	}
	if allowed {
		t.Error("should NOT be allowed when circuit is open")
	}
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, target)
	}

	state, allowed := cb.AllowRequest(ctx, target)

	if state != StateClosed {
		t.Errorf("expected state %q, got %q", StateClosed, state)
	}
	if !allowed {
		t.Error("should be allowed when below threshold")
	}
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	for i := 0; i < 4; i++ {
		cb.RecordFailure(ctx, target)
	}
	cb.RecordSuccess(ctx, target)

	state := cb.GetState(ctx, target)

	if state.State != StateClosed {
		t.Errorf("expected state %q after success, got %q", StateClosed, state.State)
	}
	if state.Failures != 0 {
		t.Errorf("expected 0 failures after success, got %d", state.Failures)
	}
}

func TestCircuitBreaker_TransitionsToHalfOpen(t *testing.T) {
	cb, mr := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, target)
	}

	state, allowed := cb.AllowRequest(ctx, target)
	if state != StateOpen || allowed {
		t.Fatal("circuit should be open and blocking")
	}

	pastTime := time.Now().Unix() - 31
	mr.HSet(cbKey(target), "last_failed_at", fmt.Sprintf("%d", pastTime))

	state, allowed = cb.AllowRequest(ctx, target)
	if state != StateHalfOpen {
		t.Errorf("expected state %q, got %q", StateHalfOpen, state)
	}
	if !allowed {
		t.Error("should allow one request in half-open state")
	}
}

func TestCircuitBreaker_HalfOpenSuccess_ClosesCircuit(t *testing.T) {
	cb, mr := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	openCircuitAndExpireCooldown(t, cb, mr, target)
	cb.AllowRequest(ctx, target) // triggers half-open transition

	cb.RecordSuccess(ctx, target)

	state := cb.GetState(ctx, target)
	if state.State != StateClosed {
		t.Errorf("expected %q after half-open success, got %q", StateClosed, state.State)
	}
}

func TestCircuitBreaker_HalfOpenFailure_ReopensCircuit(t *testing.T) {
	cb, mr := setupTestCB(t)
	ctx := context.Background()
	target := "http://example.com/webhook"

	openCircuitAndExpireCooldown(t, cb, mr, target)
	cb.AllowRequest(ctx, target) // triggers half-open transition

	cb.RecordFailure(ctx, target)

	state, allowed := cb.AllowRequest(ctx, target)
	if state != StateOpen {
		t.Errorf("expected %q after half-open failure, got %q", StateOpen, state)
	}
	if allowed {
		t.Error("should NOT be allowed after half-open failure")
	}
}

func TestCircuitBreaker_IsolationBetweenTargets(t *testing.T) {
	cb, _ := setupTestCB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		cb.RecordFailure(ctx, "http://a.example.com/webhook")
	}

	state, allowed := cb.AllowRequest(ctx, "http://b.example.com/webhook")
	if state != StateClosed {
		t.Errorf("second target should be closed, got %q", state)
	}
	if !allowed {
		t.Error("second target should be allowed — circuit breakers are per-target")
	}
}
