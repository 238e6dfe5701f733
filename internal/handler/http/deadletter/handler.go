package deadletter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/deadletter"
)

type discardRequest struct {
	Reason string `json:"reason"`
}

type DeadLetterHandler struct {
	service app.DeadLetterService
	logger  *zap.Logger
}

func NewDeadLetterHandler(s app.DeadLetterService, l *zap.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{service: s, logger: l}
}

func (h *DeadLetterHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Error listing dead letters", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

func (h *DeadLetterHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.Error(w, "Dead letter not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting dead letter", zap.String("id", id), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

func (h *DeadLetterHandler) ReprocessMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Reprocess(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, app.ErrNotFound):
			http.Error(w, "Dead letter not found", http.StatusNotFound)
		case errors.Is(err, app.ErrAlreadyDiscarded):
			http.Error(w, "Dead letter was discarded", http.StatusConflict)
		default:
			h.logger.Error("Error reprocessing dead letter", zap.String("id", id), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeadLetterHandler) DiscardMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req discardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "Discard requires a reason", http.StatusBadRequest)
		return
	}

	if err := h.service.Discard(r.Context(), id, req.Reason); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.Error(w, "Dead letter not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error discarding dead letter", zap.String("id", id), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
