// Package redelivery parks failed messages and republishes them to their
// original topic after the configured delay, giving downstream dependencies
// time to recover from outages.
package redelivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/messaging"
	"ecommerce/internal/repository/redelivery_repo"
)

const batchSize = 100

// Scheduler implements messaging.RedeliveryScheduler on a database table and
// runs the poller that republishes due messages.
type Scheduler struct {
	repo         redelivery_repo.RedeliveryRepository
	producer     messaging.Producer
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewScheduler(
	repo redelivery_repo.RedeliveryRepository,
	producer messaging.Producer,
	pollInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		repo:         repo,
		producer:     producer,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Schedule parks one message until dueAt.
func (s *Scheduler) Schedule(ctx context.Context, msg messaging.Message, attempt int, dueAt time.Time) error {
	return s.repo.CreateMessage(ctx, &domain.RedeliveryMessage{
		ID:            uuid.NewString(),
		MessageID:     msg.ID,
		MessageType:   msg.Type,
		Topic:         msg.Topic,
		CorrelationID: msg.CorrelationID,
		Payload:       msg.Body,
		Headers:       msg.Headers,
		Attempt:       attempt,
		DueAt:         dueAt,
		CreatedAt:     time.Now().UTC(),
	})
}

// Run polls for due messages until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Redelivery scheduler started", zap.Duration("poll_interval", s.pollInterval))
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Redelivery scheduler stopped.")
			return
		case <-ticker.C:
			s.redeliverDue(ctx)
		}
	}
}

func (s *Scheduler) redeliverDue(ctx context.Context) {
	due, err := s.repo.ClaimDueMessages(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		s.logger.Error("Failed to claim due redelivery messages", zap.Error(err))
		return
	}

	for _, parked := range due {
		msg := messaging.Message{
			ID:                parked.MessageID,
			Type:              parked.MessageType,
			Topic:             parked.Topic,
			CorrelationID:     parked.CorrelationID,
			Body:              parked.Payload,
			Headers:           parked.Headers,
			RedeliveryAttempt: parked.Attempt,
		}
		if err := s.producer.Produce(ctx, msg); err != nil {
			// Keep the row; it comes due again once the claim window passes.
			s.logger.Error("Failed to republish redelivery message",
				zap.String("message_id", parked.MessageID),
				zap.String("topic", parked.Topic),
				zap.Error(err))
			continue
		}
		if err := s.repo.DeleteMessage(ctx, parked.ID); err != nil {
			s.logger.Error("Failed to delete redelivered message",
				zap.String("id", parked.ID),
				zap.Error(err))
			continue
		}
		s.logger.Info("Message redelivered",
			zap.String("message_id", parked.MessageID),
			zap.String("topic", parked.Topic),
			zap.Int("redelivery_attempt", parked.Attempt))
	}
}
