package api

import (
	"net/http"
	"strconv"

	"github.com/Priya8975/webhook-dispatcher/internal/store"
	"github.com/go-chi/chi/v5"
)

type AttemptHandler struct {
	store *store.Store
}

func NewAttemptHandler(s *store.Store) *AttemptHandler {
	return &AttemptHandler{store: s}
}

// List returns the attempt audit log, optionally filtered to one event.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	attempts, err := h.store.ListAttempts(r.Context(), eventID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}

	respondJSON(w, http.StatusOK, attempts)
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	attempt, err := h.store.GetAttempt(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get attempt")
		return
	}
	if attempt == nil {
		respondError(w, http.StatusNotFound, "attempt not found")
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}
