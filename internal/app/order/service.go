package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecommerce/internal/clients/catalog"
	"ecommerce/internal/correlation"
	"ecommerce/internal/domain"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
	"ecommerce/internal/repository/order_repo"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order data")
)

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*OrderResponse, error)
	GetOrdersByClientID(ctx context.Context, clientID int64) ([]*OrderResponse, error)
	ShipOrder(ctx context.Context, orderID string, req *ShipOrderRequest) error
	DeliverOrder(ctx context.Context, orderID string, req *DeliverOrderRequest) error
	CancelOrder(ctx context.Context, orderID string, req *CancelOrderRequest) error
	ApplyPaymentCompleted(ctx context.Context, ev *event.PaymentCompletedEvent) error
	ApplyPaymentFailed(ctx context.Context, ev *event.PaymentFailedEvent) error
}

type orderService struct {
	orderRepo   order_repo.OrderRepository
	stockClient catalog.StockClient
	logger      *zap.Logger
}

func NewOrderService(orderRepo order_repo.OrderRepository, stockClient catalog.StockClient, logger *zap.Logger) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		stockClient: stockClient,
		logger:      logger,
	}
}

// CreateOrder decrements stock first, then persists the order together with
// its OrderCreated outbox row in one transaction. If the order write fails
// after the decrement, the stock is compensated with an increase; there is
// no distributed transaction spanning the two stores.
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	order, err := domain.NewOrder(uuid.NewString(), req.ClientID, domain.PaymentType(req.PaymentType),
		req.ShippingAddress, req.BillingAddress, items)
	if err != nil {
		s.logger.Warn("Rejected invalid order", zap.Int64("client_id", req.ClientID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, err)
	}

	stockItems := stockRequests(order.Items)
	if err := s.stockClient.DecreaseStock(ctx, stockItems); err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) || errors.Is(err, domain.ErrInsufficientStock) {
			s.logger.Warn("Order rejected for insufficient stock",
				zap.Int64("client_id", req.ClientID), zap.Error(err))
			return nil, err
		}
		s.logger.Error("Failed to decrease stock for order", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	msg, err := s.orderCreatedMessage(ctx, order)
	if err != nil {
		s.compensateStock(ctx, order.ID, stockItems)
		return nil, err
	}

	if err := s.orderRepo.CreateOrderAndOutboxMessage(ctx, order, msg); err != nil {
		s.logger.Error("Failed to save order, compensating stock decrement",
			zap.String("order_id", order.ID), zap.Error(err))
		s.compensateStock(ctx, order.ID, stockItems)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("client_id", order.ClientID),
		zap.Float64("total", order.Total))
	return mapOrderToResponse(order), nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return mapOrderToResponse(order), nil
}

func (s *orderService) GetOrdersByClientID(ctx context.Context, clientID int64) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetOrdersByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for client: %w", err)
	}
	responses := make([]*OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrderToResponse(order)
	}
	return responses, nil
}

func (s *orderService) ShipOrder(ctx context.Context, orderID string, req *ShipOrderRequest) error {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	previousStatus := order.Status
	if err := order.MarkAsShipped(req.TrackingNumber, req.Carrier); err != nil {
		return err
	}

	payload := event.OrderShippedEvent{
		Meta:            s.newMeta(ctx),
		OrderID:         order.ID,
		ClientID:        order.ClientID,
		TrackingNumber:  order.TrackingNumber,
		Carrier:         order.Carrier,
		ShippingAddress: order.ShippingAddress,
	}
	msg, err := s.outboxMessage(order.ID, event.TypeOrderShipped, payload.CorrelationID, payload)
	if err != nil {
		return err
	}

	if err := s.orderRepo.UpdateOrderAndOutboxMessage(ctx, order, previousStatus, msg); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	s.logger.Info("Order shipped",
		zap.String("order_id", order.ID),
		zap.String("tracking_number", order.TrackingNumber))
	return nil
}

func (s *orderService) DeliverOrder(ctx context.Context, orderID string, req *DeliverOrderRequest) error {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	previousStatus := order.Status
	if err := order.MarkAsDelivered(req.ReceivedBy); err != nil {
		return err
	}

	payload := event.OrderDeliveredEvent{
		Meta:       s.newMeta(ctx),
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		ReceivedBy: order.ReceivedBy,
		Items:      eventItems(order.Items),
	}
	msg, err := s.outboxMessage(order.ID, event.TypeOrderDelivered, payload.CorrelationID, payload)
	if err != nil {
		return err
	}

	if err := s.orderRepo.UpdateOrderAndOutboxMessage(ctx, order, previousStatus, msg); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	s.logger.Info("Order delivered", zap.String("order_id", order.ID))
	return nil
}

// CancelOrder commits the status change together with the OrderCancelled
// outbox row. Stock is released by the inventory service's consumer of that
// event, never here, so one cancellation releases each item exactly once.
func (s *orderService) CancelOrder(ctx context.Context, orderID string, req *CancelOrderRequest) error {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to get order: %w", err)
	}

	previousStatus := order.Status
	alreadyCancelled := order.Status == domain.OrderStatusCancelled
	if err := order.MarkAsCancelled(req.Reason); err != nil {
		return err
	}
	if alreadyCancelled {
		s.logger.Info("Order already cancelled, skipping event", zap.String("order_id", order.ID))
		return nil
	}

	payload := event.OrderCancelledEvent{
		Meta:     s.newMeta(ctx),
		OrderID:  order.ID,
		ClientID: order.ClientID,
		Total:    order.Total,
		Reason:   order.CancellationReason,
		Items:    eventItems(order.Items),
	}
	msg, err := s.outboxMessage(order.ID, event.TypeOrderCancelled, payload.CorrelationID, payload)
	if err != nil {
		return err
	}

	if err := s.orderRepo.UpdateOrderAndOutboxMessage(ctx, order, previousStatus, msg); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID),
		zap.String("reason", order.CancellationReason))
	return nil
}

// ApplyPaymentCompleted is idempotent under at-least-once delivery: an order
// already paid with the same transaction id is a no-op, and an unknown order
// is an expected race, not an error.
func (s *orderService) ApplyPaymentCompleted(ctx context.Context, ev *event.PaymentCompletedEvent) error {
	order, err := s.orderRepo.GetOrderByID(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			s.logger.Warn("Payment completed for unknown order, ignoring",
				zap.String("order_id", ev.OrderID),
				zap.String("transaction_id", ev.TransactionID))
			return nil
		}
		return fmt.Errorf("failed to get order for payment completion: %w", err)
	}

	previousStatus := order.Status
	if err := order.MarkAsPaid(ev.TransactionID, ev.Gateway); err != nil {
		s.logger.Warn("Ignoring stale payment completed event",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err))
		return nil
	}
	if previousStatus == order.Status {
		s.logger.Info("Order already paid with this transaction, no update needed",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", ev.TransactionID))
		return nil
	}

	if err := s.orderRepo.UpdateOrderAndOutboxMessage(ctx, order, previousStatus, nil); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	s.logger.Info("Order marked as paid",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", ev.TransactionID),
		zap.String("gateway", ev.Gateway))
	return nil
}

func (s *orderService) ApplyPaymentFailed(ctx context.Context, ev *event.PaymentFailedEvent) error {
	order, err := s.orderRepo.GetOrderByID(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, order_repo.ErrOrderNotFound) {
			s.logger.Warn("Payment failed for unknown order, ignoring",
				zap.String("order_id", ev.OrderID))
			return nil
		}
		return fmt.Errorf("failed to get order for payment failure: %w", err)
	}

	previousStatus := order.Status
	if err := order.MarkAsPaymentFailed(); err != nil {
		s.logger.Warn("Ignoring payment failed event for terminal order",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)))
		return nil
	}
	if previousStatus == order.Status {
		return nil
	}

	if err := s.orderRepo.UpdateOrderAndOutboxMessage(ctx, order, previousStatus, nil); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	s.logger.Info("Order marked as payment failed",
		zap.String("order_id", order.ID),
		zap.String("error_code", ev.ErrorCode))
	return nil
}

func (s *orderService) compensateStock(ctx context.Context, orderID string, items []domain.StockChangeRequest) {
	if err := s.stockClient.IncreaseStock(ctx, items); err != nil {
		// The decrement is now unmatched; this is logged loudly for manual
		// reconciliation rather than hidden.
		s.logger.Error("Stock compensation failed, ledger drift requires reconciliation",
			zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *orderService) orderCreatedMessage(ctx context.Context, order *domain.Order) (*domain.OutboxMessage, error) {
	payload := event.OrderCreatedEvent{
		Meta:     s.newMeta(ctx),
		OrderID:  order.ID,
		ClientID: order.ClientID,
		Total:    order.Total,
		Items:    eventItems(order.Items),
	}
	return s.outboxMessage(order.ID, event.TypeOrderCreated, payload.CorrelationID, payload)
}

func (s *orderService) outboxMessage(aggregateID, messageType, correlationID string, payload any) (*domain.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal event payload",
			zap.String("message_type", messageType), zap.Error(err))
		return nil, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}
	return &domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		MessageType:   messageType,
		Topic:         messaging.TopicName(messageType),
		CorrelationID: correlationID,
		Payload:       body,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *orderService) newMeta(ctx context.Context) event.Meta {
	return event.Meta{
		EventID:       uuid.NewString(),
		CorrelationID: correlation.FromContext(ctx),
		OccurredAt:    time.Now().UTC(),
	}
}

func stockRequests(items []domain.OrderItem) []domain.StockChangeRequest {
	out := make([]domain.StockChangeRequest, len(items))
	for i, item := range items {
		out[i] = domain.StockChangeRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}

func eventItems(items []domain.OrderItem) []event.OrderItem {
	out := make([]event.OrderItem, len(items))
	for i, item := range items {
		out[i] = event.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return out
}
