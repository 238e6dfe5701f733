package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/outbox_repo"
)

type pgOutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutboxRepository(db *sql.DB, l *zap.Logger) outbox_repo.OutboxRepository {
	return &pgOutboxRepository{db: db, logger: l}
}

func (r *pgOutboxRepository) CreateMessage(ctx context.Context, msg *domain.OutboxMessage) error {
	query := `INSERT INTO outbox_messages (id, aggregate_id, message_type, topic, correlation_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.AggregateID, msg.MessageType, msg.Topic, msg.CorrelationID,
		msg.Payload, msg.Status, msg.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create outbox message", zap.String("message_id", msg.ID), zap.Error(err))
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	r.logger.Debug("Outbox message created", zap.String("message_id", msg.ID), zap.String("topic", msg.Topic))
	return nil
}

// claimTTL bounds how long a PROCESSING row stays invisible to other pollers
// when its claimant died before finishing.
const claimTTL = time.Minute

func (r *pgOutboxRepository) ClaimPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	// Single statement, so the claim is atomic even across replicas: the
	// inner select locks candidate rows, the update flips them to PROCESSING
	// before any other poller can see them.
	query := `UPDATE outbox_messages SET status = $1, claimed_at = $2
		WHERE id IN (
			SELECT id FROM outbox_messages
			WHERE status = $3 OR (status = $1 AND claimed_at < $4)
			ORDER BY created_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, aggregate_id, message_type, topic, correlation_id, payload, status, created_at, sent_at`
	now := time.Now().UTC()
	rows, err := r.db.QueryContext(ctx, query,
		domain.OutboxStatusProcessing, now, domain.OutboxStatusPending, now.Add(-claimTTL), limit)
	if err != nil {
		r.logger.Error("Failed to claim pending outbox messages", zap.Error(err))
		return nil, fmt.Errorf("failed to claim pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.OutboxMessage
	for rows.Next() {
		msg := &domain.OutboxMessage{}
		var sentAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.AggregateID, &msg.MessageType, &msg.Topic,
			&msg.CorrelationID, &msg.Payload, &msg.Status, &msg.CreatedAt, &sentAt); err != nil {
			r.logger.Error("Failed to scan outbox message row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan outbox message row: %w", err)
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Rows error while claiming outbox messages", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}

func (r *pgOutboxRepository) MarkMessageSent(ctx context.Context, id string) error {
	query := `UPDATE outbox_messages SET status = $1, sent_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, domain.OutboxStatusSent, time.Now().UTC(), id, domain.OutboxStatusProcessing)
	if err != nil {
		r.logger.Error("Failed to mark outbox message as sent", zap.String("message_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark outbox message %s as sent: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		r.logger.Warn("No rows affected when marking outbox message as sent, it might be already sent or not exist", zap.String("message_id", id))
	}
	return nil
}

func (r *pgOutboxRepository) ReleaseMessage(ctx context.Context, id string) error {
	query := `UPDATE outbox_messages SET status = $1, claimed_at = NULL WHERE id = $2 AND status = $3`
	if _, err := r.db.ExecContext(ctx, query, domain.OutboxStatusPending, id, domain.OutboxStatusProcessing); err != nil {
		r.logger.Error("Failed to release outbox message claim", zap.String("message_id", id), zap.Error(err))
		return fmt.Errorf("failed to release outbox message %s: %w", id, err)
	}
	return nil
}
