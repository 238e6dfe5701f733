package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OrderCreatedEvent", "order-created"},
		{"OrderCancelledEvent", "order-cancelled"},
		{"OrderShippedEvent", "order-shipped"},
		{"OrderDeliveredEvent", "order-delivered"},
		{"PaymentCompletedEvent", "payment-completed"},
		{"PaymentFailedEvent", "payment-failed"},
		{"StockUpdatedEvent", "stock-updated"},
		{"ReserveStockCommand", "reserve-stock"},
		{"Event", "event"},
		{"Shipped", "shipped"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicName(tt.in))
		})
	}
}

func TestTopicNameIsDeterministic(t *testing.T) {
	assert.Equal(t, TopicName("OrderCreatedEvent"), TopicName("OrderCreatedEvent"))
}
