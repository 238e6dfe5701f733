package messaging

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"ecommerce/internal/correlation"
)

// Header names carried on every broker message.
const (
	HeaderMessageID     = "message_id"
	HeaderMessageType   = "message_type"
	HeaderCorrelationID = correlation.Header
	HeaderRetryCount    = "retry_count"
	HeaderRedelivery    = "redelivery_attempt"
)

// Message is the broker-independent envelope the dispatch pipeline works
// with. Body is the serialized event; headers carry identity, tracing and
// attempt bookkeeping.
type Message struct {
	ID                string
	Type              string
	Topic             string
	CorrelationID     string
	Body              []byte
	Headers           map[string]string
	RedeliveryAttempt int
	ReceivedAt        time.Time
}

// NewMessage builds an outbound envelope for one event.
func NewMessage(messageType, correlationID string, body []byte) Message {
	return Message{
		ID:            uuid.NewString(),
		Type:          messageType,
		Topic:         TopicName(messageType),
		CorrelationID: correlationID,
		Body:          body,
	}
}

// FromKafkaMessage decodes the envelope from a fetched broker message.
// Messages published by out-of-repo producers may lack headers; missing
// fields get safe defaults so at-least-once handling still works.
func FromKafkaMessage(m kafka.Message) Message {
	msg := Message{
		Topic:      m.Topic,
		Body:       m.Value,
		Headers:    make(map[string]string, len(m.Headers)),
		ReceivedAt: time.Now().UTC(),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	msg.ID = msg.Headers[HeaderMessageID]
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Type = msg.Headers[HeaderMessageType]
	msg.CorrelationID = msg.Headers[HeaderCorrelationID]
	if attempt, err := strconv.Atoi(msg.Headers[HeaderRedelivery]); err == nil {
		msg.RedeliveryAttempt = attempt
	}
	return msg
}

// KafkaHeaders serializes the envelope metadata for publishing.
func (m Message) KafkaHeaders() []kafka.Header {
	headers := []kafka.Header{
		{Key: HeaderMessageID, Value: []byte(m.ID)},
		{Key: HeaderMessageType, Value: []byte(m.Type)},
	}
	if m.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(m.CorrelationID)})
	}
	if m.RedeliveryAttempt > 0 {
		headers = append(headers, kafka.Header{Key: HeaderRedelivery, Value: []byte(strconv.Itoa(m.RedeliveryAttempt))})
	}
	for key, value := range m.Headers {
		switch key {
		case HeaderMessageID, HeaderMessageType, HeaderCorrelationID, HeaderRedelivery:
			continue
		}
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}
