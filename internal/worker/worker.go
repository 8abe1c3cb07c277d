// Package worker implements the polling claim/dispatch loop: the only
// writer of event and attempt state once an event has been ingested.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/backoff"
	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/Priya8975/webhook-dispatcher/internal/engine"
	"github.com/Priya8975/webhook-dispatcher/internal/sender"
	"github.com/Priya8975/webhook-dispatcher/internal/signer"
	"github.com/Priya8975/webhook-dispatcher/internal/store"
	ws "github.com/Priya8975/webhook-dispatcher/internal/websocket"
	"golang.org/x/sync/errgroup"
)

// Config holds the subset of application configuration the worker needs.
type Config struct {
	PollInterval time.Duration
	Concurrency  int
	HTTPTimeout  time.Duration
	MaxAttempts  int
	Secret       []byte
}

// Worker claims due events and drives them to a terminal or rescheduled
// state. There is no in-memory queue: ClaimBatch against the database is
// the only source of work.
type Worker struct {
	store   *store.Store
	sender  *sender.Sender
	backoff *backoff.Policy
	breaker *engine.CircuitBreaker // nil when Redis is not configured
	hub     *ws.Hub                // nil when no dashboard feed is wired
	logger  *slog.Logger
	cfg     Config
}

func New(s *store.Store, backoffPolicy *backoff.Policy, breaker *engine.CircuitBreaker, hub *ws.Hub, logger *slog.Logger, cfg Config) *Worker {
	return &Worker{
		store:   s,
		sender:  sender.New(cfg.HTTPTimeout),
		backoff: backoffPolicy,
		breaker: breaker,
		hub:     hub,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run polls at cfg.PollInterval until ctx is cancelled. Each tick's batch
// is fully drained (including in-flight deliveries) before Run observes
// cancellation, so a shutdown never abandons a claimed row mid-delivery.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			if err := w.dispatchBatch(ctx); err != nil {
				w.logger.Error("dispatch batch failed", "error", err)
			}
		}
	}
}

// lease is how long a claimed row's next_retry_at is pushed out for while
// a delivery is in flight: long enough that a live worker's HTTP call
// always finishes first, short enough that a crashed worker's claim is
// reclaimed promptly.
func (w *Worker) lease() time.Duration {
	return w.cfg.HTTPTimeout + 5*time.Second
}

func (w *Worker) dispatchBatch(ctx context.Context) error {
	batchSize := w.cfg.Concurrency
	if batchSize < 1 {
		batchSize = 1
	}

	events, err := w.store.ClaimBatch(ctx, batchSize, time.Now(), w.lease())
	if err != nil {
		return fmt.Errorf("claiming batch: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	// Deliveries run on a context detached from ctx's cancellation, so a
	// shutdown lets in-flight attempts finish (each bounded by the Sender's
	// HTTP timeout) and record their outcome before Run returns.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(batchSize)

	for _, e := range events {
		e := e
		g.Go(func() error {
			w.processEvent(gctx, e)
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) processEvent(ctx context.Context, e domain.Event) {
	attemptNumber := e.AttemptCount + 1
	log := w.logger.With("event_id", e.ID, "target_url", e.TargetURL, "attempt_number", attemptNumber)

	if w.breaker != nil {
		if _, allowed := w.breaker.AllowRequest(ctx, e.TargetURL); !allowed {
			if err := w.store.DeferEvent(ctx, e.ID, time.Now().Add(w.breaker.Cooldown())); err != nil {
				log.Error("failed to defer event for open circuit", "error", err)
			}
			log.Warn("skipped delivery, circuit open")
			return
		}
	}

	signature := signer.Sign(w.cfg.Secret, e.Payload)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(signer.Header, signature)

	start := time.Now()
	outcome := w.sender.Send(ctx, e.TargetURL, e.Payload, headers)
	responseTimeMs := int(time.Since(start).Milliseconds())

	if outcome.Success() {
		w.recordSuccess(ctx, log, e, attemptNumber, *outcome.StatusCode, outcome.Body, responseTimeMs)
		return
	}

	w.recordFailure(ctx, log, e, attemptNumber, outcome, responseTimeMs)
}

func (w *Worker) recordSuccess(ctx context.Context, log *slog.Logger, e domain.Event, attemptNumber, statusCode int, body []byte, responseTimeMs int) {
	if err := w.store.RecordSuccess(ctx, e.ID, attemptNumber, statusCode, body, responseTimeMs); err != nil {
		log.Error("failed to record success", "error", err)
		return
	}
	if w.breaker != nil {
		w.breaker.RecordSuccess(ctx, e.TargetURL)
	}
	log.Info("delivered", "status_code", statusCode, "response_time_ms", responseTimeMs)

	if w.hub != nil {
		sc := statusCode
		w.hub.Broadcast(ws.DeliveryEvent{
			Type:           "delivery_success",
			EventID:        e.ID,
			TargetURL:      e.TargetURL,
			AttemptNumber:  attemptNumber,
			StatusCode:     &sc,
			ResponseTimeMs: int64(responseTimeMs),
			Timestamp:      time.Now(),
		})
	}
}

func (w *Worker) recordFailure(ctx context.Context, log *slog.Logger, e domain.Event, attemptNumber int, outcome sender.Outcome, responseTimeMs int) {
	delay := w.backoff.NextDelay(attemptNumber)

	if err := w.store.RecordFailure(ctx, e.ID, attemptNumber, outcome.StatusCode, outcome.Body, outcome.Err, responseTimeMs, w.cfg.MaxAttempts, delay); err != nil {
		log.Error("failed to record failure", "error", err)
		return
	}
	if w.breaker != nil {
		w.breaker.RecordFailure(ctx, e.TargetURL)
	}

	dead := attemptNumber >= w.cfg.MaxAttempts
	eventType := "delivery_retrying"
	if dead {
		eventType = "delivery_dead"
	}
	log.Warn("delivery failed", "status_code", outcome.StatusCode, "error", outcome.Err, "will_retry", !dead, "next_delay", delay)

	if w.hub != nil {
		errMsg := outcome.Err
		if errMsg == "" && outcome.StatusCode != nil {
			errMsg = fmt.Sprintf("received status %d", *outcome.StatusCode)
		}
		w.hub.Broadcast(ws.DeliveryEvent{
			Type:           eventType,
			EventID:        e.ID,
			TargetURL:      e.TargetURL,
			AttemptNumber:  attemptNumber,
			StatusCode:     outcome.StatusCode,
			ResponseTimeMs: int64(responseTimeMs),
			Error:          errMsg,
			Timestamp:      time.Now(),
		})
	}
}
