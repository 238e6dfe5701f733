package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/repository/order_repo"
)

type fakeOrderRepo struct {
	orders      map[string]*domain.Order
	outbox      []*domain.OutboxMessage
	updatedFrom []domain.OrderStatus
	createErr   error
	updateErr   error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) CreateOrderAndOutboxMessage(_ context.Context, order *domain.Order, msg *domain.OutboxMessage) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[order.ID] = order
	r.outbox = append(r.outbox, msg)
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, order_repo.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) GetOrdersByClientID(_ context.Context, clientID int64) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, order := range r.orders {
		if order.ClientID == clientID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateOrderAndOutboxMessage(_ context.Context, order *domain.Order, previousStatus domain.OrderStatus, msg *domain.OutboxMessage) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.orders[order.ID] = order
	r.updatedFrom = append(r.updatedFrom, previousStatus)
	if msg != nil {
		r.outbox = append(r.outbox, msg)
	}
	return nil
}

type fakeStockClient struct {
	decreased   [][]domain.StockChangeRequest
	increased   [][]domain.StockChangeRequest
	decreaseErr error
	increaseErr error
}

func (c *fakeStockClient) DecreaseStock(_ context.Context, items []domain.StockChangeRequest) error {
	if c.decreaseErr != nil {
		return c.decreaseErr
	}
	c.decreased = append(c.decreased, items)
	return nil
}

func (c *fakeStockClient) IncreaseStock(_ context.Context, items []domain.StockChangeRequest) error {
	if c.increaseErr != nil {
		return c.increaseErr
	}
	c.increased = append(c.increased, items)
	return nil
}

func validCreateRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		ClientID:        42,
		PaymentType:     string(domain.PaymentTypeCreditCard),
		ShippingAddress: "1 Shipping St",
		BillingAddress:  "1 Billing St",
		Items: []CreateOrderItem{
			{ProductID: 1, Quantity: 2, UnitPrice: 100},
			{ProductID: 2, Quantity: 1, UnitPrice: 50},
		},
	}
}

func newService(repo *fakeOrderRepo, stock *fakeStockClient) OrderService {
	return NewOrderService(repo, stock, zap.NewNop())
}

func TestCreateOrderHappyPath(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{}
	svc := newService(repo, stock)

	res, err := svc.CreateOrder(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, 250.0, res.Total)
	assert.Equal(t, string(domain.OrderStatusAwaitingPayment), res.Status)
	require.Len(t, stock.decreased, 1)
	assert.Equal(t, []domain.StockChangeRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}, stock.decreased[0])

	require.Len(t, repo.outbox, 1)
	msg := repo.outbox[0]
	assert.Equal(t, event.TypeOrderCreated, msg.MessageType)
	assert.Equal(t, "order-created", msg.Topic)
	assert.Equal(t, res.ID, msg.AggregateID)
	assert.Equal(t, domain.OutboxStatusPending, msg.Status)
}

func TestCreateOrderRejectsInvalidItems(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{}
	svc := newService(repo, stock)

	req := validCreateRequest()
	req.Items[0].Quantity = 0

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.Empty(t, stock.decreased, "validation must run before any stock call")
}

func TestCreateOrderInsufficientStockNoOrderNoEvent(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{decreaseErr: &domain.InsufficientStockError{ProductID: 2}}
	svc := newService(repo, stock)

	_, err := svc.CreateOrder(context.Background(), validCreateRequest())

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.ProductID)
	assert.Empty(t, repo.orders)
	assert.Empty(t, repo.outbox)
	assert.Empty(t, stock.increased, "nothing was decremented, nothing to compensate")
}

func TestCreateOrderCompensatesStockWhenPersistFails(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.createErr = errors.New("db down")
	stock := &fakeStockClient{}
	svc := newService(repo, stock)

	_, err := svc.CreateOrder(context.Background(), validCreateRequest())
	require.Error(t, err)

	require.Len(t, stock.increased, 1)
	assert.Equal(t, stock.decreased[0], stock.increased[0])
	assert.Empty(t, repo.outbox)
}

func seedOrder(t *testing.T, repo *fakeOrderRepo) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("order-1", 42, domain.PaymentTypeCreditCard, "a", "b",
		[]domain.OrderItem{{ProductID: 1, Quantity: 2, UnitPrice: 100}})
	require.NoError(t, err)
	repo.orders[order.ID] = order
	return order
}

func TestApplyPaymentCompletedMarksPaid(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})
	order := seedOrder(t, repo)

	ev := &event.PaymentCompletedEvent{OrderID: order.ID, TransactionID: "tx-1", Gateway: "stripe"}
	require.NoError(t, svc.ApplyPaymentCompleted(context.Background(), ev))
	assert.Equal(t, domain.OrderStatusPaid, repo.orders[order.ID].Status)
}

func TestApplyPaymentCompletedDuplicateIsNoOp(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})
	order := seedOrder(t, repo)

	ev := &event.PaymentCompletedEvent{OrderID: order.ID, TransactionID: "tx-1", Gateway: "stripe"}
	require.NoError(t, svc.ApplyPaymentCompleted(context.Background(), ev))

	repo.updateErr = errors.New("should not be called again")
	require.NoError(t, svc.ApplyPaymentCompleted(context.Background(), ev))
}

func TestApplyPaymentCompletedUnknownOrderIsIgnored(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})

	ev := &event.PaymentCompletedEvent{OrderID: "missing", TransactionID: "tx-1"}
	assert.NoError(t, svc.ApplyPaymentCompleted(context.Background(), ev))
}

func TestApplyPaymentCompletedStaleEventIsSwallowed(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})
	order := seedOrder(t, repo)
	require.NoError(t, order.MarkAsPaid("tx-1", "stripe"))
	require.NoError(t, order.MarkAsShipped("TRACK-1", "dhl"))

	ev := &event.PaymentCompletedEvent{OrderID: order.ID, TransactionID: "tx-9"}
	assert.NoError(t, svc.ApplyPaymentCompleted(context.Background(), ev),
		"an invalid transition from an event must not bounce forever through retries")
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
}

func TestApplyPaymentFailed(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})
	order := seedOrder(t, repo)

	ev := &event.PaymentFailedEvent{OrderID: order.ID, ErrorCode: "card_declined"}
	require.NoError(t, svc.ApplyPaymentFailed(context.Background(), ev))
	assert.Equal(t, domain.OrderStatusPaymentFailed, order.Status)

	// A later successful retry still moves the order to paid.
	paid := &event.PaymentCompletedEvent{OrderID: order.ID, TransactionID: "tx-2", Gateway: "stripe"}
	require.NoError(t, svc.ApplyPaymentCompleted(context.Background(), paid))
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
}

func TestCancelOrderPublishesWithoutReleasingStock(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{}
	svc := newService(repo, stock)
	order := seedOrder(t, repo)

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, &CancelOrderRequest{Reason: "changed my mind"}))

	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	require.Len(t, repo.outbox, 1)
	assert.Equal(t, event.TypeOrderCancelled, repo.outbox[0].MessageType)
	// Stock is released by the inventory service consuming the event; a
	// direct release here would count each cancellation twice.
	assert.Empty(t, stock.increased)
	assert.Empty(t, stock.decreased)
}

func TestCancelOrderTwicePublishesOnce(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{}
	svc := newService(repo, stock)
	order := seedOrder(t, repo)

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, &CancelOrderRequest{Reason: "first"}))
	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, &CancelOrderRequest{Reason: "second"}))

	assert.Len(t, repo.outbox, 1)
	assert.Empty(t, stock.increased)
}

func TestCancelOrderAfterShipmentRejected(t *testing.T) {
	repo := newFakeOrderRepo()
	stock := &fakeStockClient{}
	svc := newService(repo, stock)
	order := seedOrder(t, repo)
	require.NoError(t, order.MarkAsPaid("tx-1", "stripe"))
	require.NoError(t, order.MarkAsShipped("TRACK-1", "dhl"))

	err := svc.CancelOrder(context.Background(), order.ID, &CancelOrderRequest{Reason: "too late"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, stock.increased)
}

func TestShipAndDeliverPublishLifecycleEvents(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeStockClient{})
	order := seedOrder(t, repo)
	require.NoError(t, order.MarkAsPaid("tx-1", "stripe"))

	require.NoError(t, svc.ShipOrder(context.Background(), order.ID, &ShipOrderRequest{TrackingNumber: "TRACK-1", Carrier: "dhl"}))
	require.NoError(t, svc.DeliverOrder(context.Background(), order.ID, &DeliverOrderRequest{ReceivedBy: "neighbor"}))

	require.Len(t, repo.outbox, 2)
	assert.Equal(t, event.TypeOrderShipped, repo.outbox[0].MessageType)
	assert.Equal(t, event.TypeOrderDelivered, repo.outbox[1].MessageType)
	// The status each update compares against is the one that was loaded, so
	// a concurrent transition makes the write miss instead of overwriting it.
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusPaid, domain.OrderStatusShipped}, repo.updatedFrom)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)
	assert.WithinDuration(t, time.Now().UTC(), *order.DeliveredAt, time.Minute)
}

func TestGetOrderNotFound(t *testing.T) {
	svc := newService(newFakeOrderRepo(), &fakeStockClient{})
	_, err := svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
