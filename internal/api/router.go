package api

import (
	"io/fs"
	"net/http"

	"github.com/Priya8975/webhook-dispatcher/internal/engine"
	"github.com/Priya8975/webhook-dispatcher/internal/store"
	ws "github.com/Priya8975/webhook-dispatcher/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the HTTP router. cb and hub may both be
// nil when no Redis backend is configured — their routes then degrade
// gracefully instead of panicking.
func NewRouter(pgStore *store.Store, cb *engine.CircuitBreaker, hub *ws.Hub, defaultTarget string, dashboardFS fs.FS) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware)

	eventHandler := NewEventHandler(pgStore, defaultTarget)
	attemptHandler := NewAttemptHandler(pgStore)
	dashHandler := NewDashboardHandler(pgStore, cb, hub)

	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.Create)
		r.Get("/", eventHandler.List)
		r.Get("/{id}", eventHandler.Get)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		r.Route("/attempts", func(r chi.Router) {
			r.Get("/", attemptHandler.List)
			r.Get("/{id}", attemptHandler.Get)
		})

		r.Get("/metrics", dashHandler.Metrics)
		r.Get("/targets-health", dashHandler.TargetHealth)
	})

	if dashboardFS != nil {
		fileServer := http.FileServer(http.FS(dashboardFS))
		r.Handle("/*", fileServer)
	}

	return r
}

// corsMiddleware adds CORS headers for dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
