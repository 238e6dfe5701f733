package domain

import "time"

// RedeliveryMessage is a message parked for delayed redelivery after its
// immediate retries were exhausted. A poller republishes it to the original
// topic once DueAt passes.
type RedeliveryMessage struct {
	ID            string
	MessageID     string
	MessageType   string
	Topic         string
	CorrelationID string
	Payload       []byte
	Headers       map[string]string
	Attempt       int
	DueAt         time.Time
	CreatedAt     time.Time
}
