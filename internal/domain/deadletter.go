package domain

import "time"

// DeadLetterMessage is the immutable snapshot taken when a message exhausts
// every retry and redelivery attempt. Records are kept for audit and only
// change through the operator-driven reprocess/discard operations.
type DeadLetterMessage struct {
	ID              string
	MessageID       string
	MessageType     string
	Body            []byte
	SourceTopic     string
	FailureReason   string
	ExceptionDetail string
	RetryCount      int
	FirstAttemptAt  time.Time
	LastAttemptAt   time.Time
	DeadLetteredAt  time.Time
	CorrelationID   string
	Headers         map[string]string
	IsReprocessed   bool
	ReprocessedAt   *time.Time
	IsDiscarded     bool
	DiscardedAt     *time.Time
	DiscardReason   string
}
