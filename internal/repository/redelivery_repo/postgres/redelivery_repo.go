package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/redelivery_repo"
)

type pgRedeliveryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRedeliveryRepository(db *sql.DB, l *zap.Logger) redelivery_repo.RedeliveryRepository {
	return &pgRedeliveryRepository{db: db, logger: l}
}

func (r *pgRedeliveryRepository) CreateMessage(ctx context.Context, msg *domain.RedeliveryMessage) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal redelivery headers: %w", err)
	}
	query := `INSERT INTO redelivery_messages (id, message_id, message_type, topic, correlation_id, payload, headers, attempt, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.ExecContext(ctx, query,
		msg.ID, msg.MessageID, msg.MessageType, msg.Topic, msg.CorrelationID,
		msg.Payload, headers, msg.Attempt, msg.DueAt, msg.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create redelivery message", zap.String("message_id", msg.MessageID), zap.Error(err))
		return fmt.Errorf("failed to create redelivery message: %w", err)
	}
	r.logger.Debug("Redelivery message parked",
		zap.String("message_id", msg.MessageID),
		zap.String("topic", msg.Topic),
		zap.Time("due_at", msg.DueAt))
	return nil
}

// claimWindow is how far a claim pushes due_at into the future; a row whose
// claimant died comes back due after this.
const claimWindow = time.Minute

func (r *pgRedeliveryRepository) ClaimDueMessages(ctx context.Context, now time.Time, limit int) ([]*domain.RedeliveryMessage, error) {
	// Single statement: the inner select locks due rows, the update moves
	// their due time past the claim window before any other poller sees them.
	query := `UPDATE redelivery_messages SET due_at = $1
		WHERE id IN (
			SELECT id FROM redelivery_messages
			WHERE due_at <= $2
			ORDER BY due_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, message_id, message_type, topic, correlation_id, payload, headers, attempt, due_at, created_at`
	rows, err := r.db.QueryContext(ctx, query, now.Add(claimWindow), now, limit)
	if err != nil {
		r.logger.Error("Failed to claim due redelivery messages", zap.Error(err))
		return nil, fmt.Errorf("failed to claim due redelivery messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.RedeliveryMessage
	for rows.Next() {
		msg := &domain.RedeliveryMessage{}
		var headers []byte
		if err := rows.Scan(&msg.ID, &msg.MessageID, &msg.MessageType, &msg.Topic,
			&msg.CorrelationID, &msg.Payload, &headers, &msg.Attempt, &msg.DueAt, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redelivery message row: %w", err)
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &msg.Headers); err != nil {
				return nil, fmt.Errorf("failed to unmarshal redelivery headers: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}

func (r *pgRedeliveryRepository) DeleteMessage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM redelivery_messages WHERE id = $1`, id); err != nil {
		r.logger.Error("Failed to delete redelivery message", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete redelivery message %s: %w", id, err)
	}
	return nil
}
