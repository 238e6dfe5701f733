package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/order"
	"ecommerce/internal/domain"
	"ecommerce/internal/repository/order_repo"
)

type OrderHandler struct {
	service app.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(s app.OrderService, l *zap.Logger) *OrderHandler {
	return &OrderHandler{service: s, logger: l}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreateOrder", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		switch {
		case errors.As(err, &insufficient), errors.Is(err, domain.ErrInsufficientStock):
			h.logger.Warn("Order rejected for insufficient stock", zap.Error(err))
			writeJSONError(w, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrInvalidOrder):
			h.logger.Warn("Bad request for CreateOrder", zap.Error(err))
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Error creating order", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	res, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, app.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting order", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) GetOrdersByClientID(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetOrdersByClientID(r.Context(), clientID)
	if err != nil {
		h.logger.Error("Error listing orders for client", zap.Int64("client_id", clientID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	var req app.ShipOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func() error {
		return h.service.ShipOrder(r.Context(), chi.URLParam(r, "orderID"), &req)
	})
}

func (h *OrderHandler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	var req app.DeliverOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func() error {
		return h.service.DeliverOrder(r.Context(), chi.URLParam(r, "orderID"), &req)
	})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.transition(w, r, func() error {
		return h.service.CancelOrder(r.Context(), chi.URLParam(r, "orderID"), &req)
	})
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, apply func() error) {
	orderID := chi.URLParam(r, "orderID")
	if err := apply(); err != nil {
		switch {
		case errors.Is(err, app.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			h.logger.Warn("Invalid order transition", zap.String("order_id", orderID), zap.Error(err))
			writeJSONError(w, http.StatusConflict, err.Error())
		case errors.Is(err, order_repo.ErrStaleOrder):
			h.logger.Warn("Concurrent order transition lost the race", zap.String("order_id", orderID))
			writeJSONError(w, http.StatusConflict, "order was modified concurrently, reload and retry")
		default:
			h.logger.Error("Error applying order transition", zap.String("order_id", orderID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
