package api

import (
	"net/http"

	"github.com/Priya8975/webhook-dispatcher/internal/engine"
	"github.com/Priya8975/webhook-dispatcher/internal/store"
	ws "github.com/Priya8975/webhook-dispatcher/internal/websocket"
)

type DashboardHandler struct {
	store *store.Store
	cb    *engine.CircuitBreaker // nil when Redis is not configured
	hub   *ws.Hub
}

func NewDashboardHandler(s *store.Store, cb *engine.CircuitBreaker, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{store: s, cb: cb, hub: hub}
}

type metricsResponse struct {
	store.DeliveryMetrics
	WebSocketClients int `json:"websocket_clients"`
}

// Metrics returns aggregated queue statistics for the operator dashboard.
// There is no in-process counter: everything is read back from Postgres.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.store.GetDeliveryMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get metrics")
		return
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		DeliveryMetrics:  *metrics,
		WebSocketClients: clients,
	})
}

type targetHealth struct {
	TargetURL      string              `json:"target_url"`
	CircuitBreaker engine.State `json:"circuit_breaker"`
}

// TargetHealth reports circuit breaker state for recently active targets.
// Returns an empty list when no Redis backend is configured — the breaker
// is advisory and its absence never blocks delivery.
func (h *DashboardHandler) TargetHealth(w http.ResponseWriter, r *http.Request) {
	if h.cb == nil {
		respondJSON(w, http.StatusOK, []targetHealth{})
		return
	}

	targets, err := h.store.ListDistinctTargets(r.Context(), 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list targets")
		return
	}

	result := make([]targetHealth, 0, len(targets))
	for _, t := range targets {
		result = append(result, targetHealth{
			TargetURL:      t,
			CircuitBreaker: h.cb.GetState(r.Context(), t),
		})
	}

	respondJSON(w, http.StatusOK, result)
}
