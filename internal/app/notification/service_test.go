package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain/event"
)

type recordingSender struct {
	sent []sentNotification
	err  error
}

type sentNotification struct {
	recipient   string
	templateKey string
	data        map[string]string
}

func (s *recordingSender) Send(_ context.Context, recipient, templateKey string, data map[string]string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentNotification{recipient: recipient, templateKey: templateKey, data: data})
	return nil
}

func TestNewSendersRejectsUnknownChannel(t *testing.T) {
	_, err := NewSenders([]string{"email", "pigeon"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pigeon")
}

func TestNewSendersRequiresAtLeastOneChannel(t *testing.T) {
	_, err := NewSenders(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewSendersKnownChannels(t *testing.T) {
	senders, err := NewSenders([]string{"email", "sms"}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, senders, 2)
}

func TestNotifyOrderCreatedFansOutToAllChannels(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSender{}
	svc := NewNotificationService(map[Channel]Sender{ChannelEmail: email, ChannelSMS: sms}, zap.NewNop())

	svc.NotifyOrderCreated(context.Background(), &event.OrderCreatedEvent{
		OrderID:  "order-1",
		ClientID: 42,
		Total:    250,
	})

	require.Len(t, email.sent, 1)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "client:42", email.sent[0].recipient)
	assert.Equal(t, TemplateOrderConfirmation, email.sent[0].templateKey)
	assert.Equal(t, "order-1", email.sent[0].data["order_id"])
	assert.Equal(t, "250.00", email.sent[0].data["total"])
}

func TestSendFailureIsSwallowed(t *testing.T) {
	failing := &recordingSender{err: errors.New("gateway down")}
	working := &recordingSender{}
	svc := NewNotificationService(map[Channel]Sender{ChannelEmail: failing, ChannelSMS: working}, zap.NewNop())

	// Must not panic or propagate; the remaining channel still delivers.
	svc.NotifyPaymentFailed(context.Background(), &event.PaymentFailedEvent{
		OrderID:   "order-1",
		ErrorCode: "card_declined",
	})

	assert.Len(t, working.sent, 1)
}

func TestNotifyStockUpdatedBackInStock(t *testing.T) {
	email := &recordingSender{}
	svc := NewNotificationService(map[Channel]Sender{ChannelEmail: email}, zap.NewNop())

	svc.NotifyStockUpdated(context.Background(), &event.StockUpdatedEvent{
		ProductID:     7,
		PreviousStock: 0,
		CurrentStock:  5,
	})

	require.Len(t, email.sent, 1)
	assert.Equal(t, "product-watchers:7", email.sent[0].recipient)
	assert.Equal(t, TemplateBackInStock, email.sent[0].templateKey)
}

func TestNotifyStockUpdatedOrdinaryChangeIsSilent(t *testing.T) {
	email := &recordingSender{}
	svc := NewNotificationService(map[Channel]Sender{ChannelEmail: email}, zap.NewNop())

	svc.NotifyStockUpdated(context.Background(), &event.StockUpdatedEvent{
		ProductID:     7,
		PreviousStock: 10,
		CurrentStock:  8,
	})

	assert.Empty(t, email.sent)
}
