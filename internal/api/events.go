package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/go-chi/chi/v5"
)

// EventReader reads persisted events.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, alertOnly bool, limit int) ([]domain.Event, error)
	GetEventStats(ctx context.Context) (*domain.EventStats, error)
}

type EventHandler struct {
	store EventReader
}

func NewEventHandler(s EventReader) *EventHandler {
	return &EventHandler{store: s}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	alertOnly, _ := strconv.ParseBool(r.URL.Query().Get("alert"))

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.store.ListEvents(r.Context(), alertOnly, limit)
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

func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetEventStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
