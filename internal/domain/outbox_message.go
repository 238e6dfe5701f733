package domain

import "time"

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	// OutboxStatusProcessing marks a row claimed by one poller so concurrent
	// replicas skip it; a claim left behind by a crash expires and the row
	// goes back on the table.
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// OutboxMessage is an event waiting to be published. It is inserted in the
// same transaction as the state change that produced it, so the event is
// observable exactly when the write commits.
type OutboxMessage struct {
	ID            string
	AggregateID   string
	MessageType   string
	Topic         string
	CorrelationID string
	Payload       []byte
	Status        OutboxStatus
	CreatedAt     time.Time
	SentAt        *time.Time
}
