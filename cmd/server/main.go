package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Priya8975/webhook-dispatcher/internal/api"
	"github.com/Priya8975/webhook-dispatcher/internal/backoff"
	"github.com/Priya8975/webhook-dispatcher/internal/config"
	"github.com/Priya8975/webhook-dispatcher/internal/engine"
	"github.com/Priya8975/webhook-dispatcher/internal/store"
	"github.com/Priya8975/webhook-dispatcher/internal/websocket"
	"github.com/Priya8975/webhook-dispatcher/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgStore, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Redis is optional: it backs only the circuit breaker and the live
	// dashboard feed, never queue or event state.
	var breaker *engine.CircuitBreaker
	var hub *websocket.Hub
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")

		breaker = engine.NewCircuitBreaker(redisStore.Client(), logger)
		hub = websocket.NewHub(logger)
		go hub.Run()
	} else {
		logger.Warn("REDIS_URL not set, circuit breaker and live dashboard feed disabled")
	}

	backoffPolicy := backoff.NewPolicy(cfg.BackoffBase, cfg.BackoffCap, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))

	w := worker.New(pgStore, backoffPolicy, breaker, hub, logger, worker.Config{
		PollInterval: cfg.WorkerPollInterval,
		Concurrency:  cfg.WorkerConcurrency,
		HTTPTimeout:  cfg.HTTPTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Secret:       []byte(cfg.WebhookSecret),
	})
	workerDone := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(workerDone)
	}()

	router := api.NewRouter(pgStore, breaker, hub, cfg.DefaultTargetURL, nil)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Cancel context: the worker stops claiming and finishes its in-flight
	// batch (see worker.Run) before returning. Wait for it within the
	// shutdown grace period; a row still in flight after that stays
	// pending and is reclaimed once its lease expires.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker did not finish in-flight deliveries within the grace period")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
