// Package deadletter stores terminal message failures and exposes the
// operator-driven reprocess/discard operations. Nothing here runs
// automatically: dead-lettered messages wait for human judgment.
package deadletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/messaging"
	"ecommerce/internal/repository/deadletter_repo"
)

var (
	ErrNotFound         = errors.New("dead letter message not found")
	ErrAlreadyDiscarded = errors.New("dead letter message was discarded")
)

type DeadLetterService interface {
	// Capture snapshots a terminally failed message. Implements
	// messaging.DeadLetterSink.
	Capture(ctx context.Context, msg messaging.Message, failure messaging.Failure) error
	List(ctx context.Context, limit, offset int) ([]*domain.DeadLetterMessage, error)
	Get(ctx context.Context, id string) (*domain.DeadLetterMessage, error)
	// Reprocess republishes the original body to its original topic and
	// marks the record.
	Reprocess(ctx context.Context, id string) error
	// Discard marks the record as intentionally dropped.
	Discard(ctx context.Context, id, reason string) error
}

type deadLetterService struct {
	repo     deadletter_repo.DeadLetterRepository
	producer messaging.Producer
	logger   *zap.Logger
}

func NewDeadLetterService(repo deadletter_repo.DeadLetterRepository, producer messaging.Producer, logger *zap.Logger) DeadLetterService {
	return &deadLetterService{repo: repo, producer: producer, logger: logger}
}

func (s *deadLetterService) Capture(ctx context.Context, msg messaging.Message, failure messaging.Failure) error {
	record := &domain.DeadLetterMessage{
		ID:             uuid.NewString(),
		MessageID:      msg.ID,
		MessageType:    msg.Type,
		Body:           msg.Body,
		SourceTopic:    msg.Topic,
		FailureReason:  failure.Reason,
		RetryCount:     failure.RetryCount,
		FirstAttemptAt: failure.FirstAttemptAt,
		LastAttemptAt:  failure.LastAttemptAt,
		DeadLetteredAt: time.Now().UTC(),
		CorrelationID:  msg.CorrelationID,
		Headers:        msg.Headers,
	}
	if failure.Err != nil {
		record.ExceptionDetail = failure.Err.Error()
	}

	if err := s.repo.CreateMessage(ctx, record); err != nil {
		return fmt.Errorf("failed to store dead letter: %w", err)
	}
	return nil
}

func (s *deadLetterService) List(ctx context.Context, limit, offset int) ([]*domain.DeadLetterMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, limit, offset)
}

func (s *deadLetterService) Get(ctx context.Context, id string) (*domain.DeadLetterMessage, error) {
	record, err := s.repo.GetMessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, deadletter_repo.ErrDeadLetterNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *deadLetterService) Reprocess(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.IsDiscarded {
		return ErrAlreadyDiscarded
	}

	msg := messaging.Message{
		ID:            record.MessageID,
		Type:          record.MessageType,
		Topic:         record.SourceTopic,
		CorrelationID: record.CorrelationID,
		Body:          record.Body,
		Headers:       record.Headers,
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to republish dead letter %s: %w", id, err)
	}

	if err := s.repo.MarkReprocessed(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Dead letter reprocessed",
		zap.String("id", id),
		zap.String("message_id", record.MessageID),
		zap.String("topic", record.SourceTopic))
	return nil
}

func (s *deadLetterService) Discard(ctx context.Context, id, reason string) error {
	if reason == "" {
		return fmt.Errorf("discard requires a reason")
	}
	if err := s.repo.MarkDiscarded(ctx, id, reason); err != nil {
		if errors.Is(err, deadletter_repo.ErrDeadLetterNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("Dead letter discarded", zap.String("id", id), zap.String("reason", reason))
	return nil
}
