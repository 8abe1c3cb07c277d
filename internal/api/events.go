package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Priya8975/webhook-dispatcher/internal/domain"
	"github.com/Priya8975/webhook-dispatcher/internal/store"
	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	store         *store.Store
	defaultTarget string
}

func NewEventHandler(s *store.Store, defaultTarget string) *EventHandler {
	return &EventHandler{store: s, defaultTarget: defaultTarget}
}

type createEventRequest struct {
	Payload   json.RawMessage `json:"payload"`
	TargetURL string          `json:"target_url,omitempty"`
}

type createEventResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Create ingests a new event. A relational insert is the entire contract:
// no delivery happens on this request path.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Payload) == 0 || !json.Valid(req.Payload) {
		respondError(w, http.StatusBadRequest, "payload must be valid, non-empty JSON")
		return
	}

	targetURL := req.TargetURL
	if targetURL == "" {
		targetURL = h.defaultTarget
	}
	if targetURL == "" {
		respondError(w, http.StatusBadRequest, "target_url is required (no default configured)")
		return
	}

	event, err := h.store.InsertEvent(r.Context(), req.Payload, targetURL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	respondJSON(w, http.StatusAccepted, createEventResponse{ID: event.ID, Status: "accepted"})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.store.ListEvents(r.Context(), status, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "event not found")
		return
	}

	respondJSON(w, http.StatusOK, event)
}
