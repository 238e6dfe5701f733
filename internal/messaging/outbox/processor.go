// Package outbox relays events written by local transactions to the broker.
// A row in outbox_messages commits together with the state change that
// produced it; the processor then publishes pending rows at least once.
package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/messaging"
	"ecommerce/internal/metrics"
	"ecommerce/internal/repository/outbox_repo"
)

const batchSize = 100

type Processor struct {
	outboxRepo   outbox_repo.OutboxRepository
	producer     messaging.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	outboxRepo outbox_repo.OutboxRepository,
	producer messaging.Producer,
	pollInterval, pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

// Run polls until the context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Outbox processor started", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopped.")
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	batch, err := p.outboxRepo.ClaimPendingMessages(pollCtx, batchSize)
	if err != nil {
		p.logger.Error("Failed to claim pending outbox messages", zap.Error(err))
		return
	}
	if len(batch) == 0 {
		return
	}

	p.logger.Info("Processing claimed outbox messages", zap.Int("count", len(batch)))

	for _, row := range batch {
		msg := messaging.Message{
			ID:            row.ID,
			Type:          row.MessageType,
			Topic:         row.Topic,
			CorrelationID: row.CorrelationID,
			Body:          row.Payload,
		}
		if err := p.producer.Produce(pollCtx, msg); err != nil {
			// Release the claim so the next poll retries immediately.
			// Publishing is at-least-once by construction.
			p.logger.Error("Failed to publish outbox message",
				zap.String("message_id", row.ID),
				zap.String("topic", row.Topic),
				zap.Error(err))
			if err := p.outboxRepo.ReleaseMessage(pollCtx, row.ID); err != nil {
				p.logger.Error("Failed to release outbox claim",
					zap.String("message_id", row.ID),
					zap.Error(err))
			}
			continue
		}
		metrics.OutboxPublished.WithLabelValues(row.Topic).Inc()

		if err := p.outboxRepo.MarkMessageSent(pollCtx, row.ID); err != nil {
			p.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", row.ID),
				zap.Error(err))
		}
	}
}
