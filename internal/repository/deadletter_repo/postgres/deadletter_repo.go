package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/deadletter_repo"
)

type pgDeadLetterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDeadLetterRepository(db *sql.DB, l *zap.Logger) deadletter_repo.DeadLetterRepository {
	return &pgDeadLetterRepository{db: db, logger: l}
}

func (r *pgDeadLetterRepository) CreateMessage(ctx context.Context, msg *domain.DeadLetterMessage) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter headers: %w", err)
	}
	query := `INSERT INTO dead_letter_messages
		(id, message_id, message_type, body, source_topic, failure_reason, exception_detail,
		 retry_count, first_attempt_at, last_attempt_at, dead_lettered_at, correlation_id, headers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.db.ExecContext(ctx, query,
		msg.ID, msg.MessageID, msg.MessageType, msg.Body, msg.SourceTopic,
		msg.FailureReason, msg.ExceptionDetail, msg.RetryCount,
		msg.FirstAttemptAt, msg.LastAttemptAt, msg.DeadLetteredAt, msg.CorrelationID, headers)
	if err != nil {
		r.logger.Error("Failed to create dead letter message", zap.String("message_id", msg.MessageID), zap.Error(err))
		return fmt.Errorf("failed to create dead letter message: %w", err)
	}
	return nil
}

const deadLetterColumns = `id, message_id, message_type, body, source_topic, failure_reason, exception_detail,
	retry_count, first_attempt_at, last_attempt_at, dead_lettered_at, correlation_id, headers,
	is_reprocessed, reprocessed_at, is_discarded, discarded_at, discard_reason`

func (r *pgDeadLetterRepository) GetMessageByID(ctx context.Context, id string) (*domain.DeadLetterMessage, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages WHERE id = $1`
	msg, err := scanDeadLetter(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deadletter_repo.ErrDeadLetterNotFound
		}
		r.logger.Error("Failed to get dead letter message", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get dead letter message %s: %w", id, err)
	}
	return msg, nil
}

func (r *pgDeadLetterRepository) ListMessages(ctx context.Context, limit, offset int) ([]*domain.DeadLetterMessage, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages ORDER BY dead_lettered_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list dead letter messages", zap.Error(err))
		return nil, fmt.Errorf("failed to list dead letter messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.DeadLetterMessage
	for rows.Next() {
		msg, err := scanDeadLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dead letter row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return messages, nil
}

func (r *pgDeadLetterRepository) MarkReprocessed(ctx context.Context, id string) error {
	query := `UPDATE dead_letter_messages SET is_reprocessed = TRUE, reprocessed_at = $2 WHERE id = $1`
	return r.mark(ctx, query, id, time.Now().UTC())
}

func (r *pgDeadLetterRepository) MarkDiscarded(ctx context.Context, id, reason string) error {
	query := `UPDATE dead_letter_messages SET is_discarded = TRUE, discarded_at = $2, discard_reason = $3 WHERE id = $1`
	return r.mark(ctx, query, id, time.Now().UTC(), reason)
}

func (r *pgDeadLetterRepository) mark(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update dead letter message", zap.Error(err))
		return fmt.Errorf("failed to update dead letter message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return deadletter_repo.ErrDeadLetterNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeadLetter(row rowScanner) (*domain.DeadLetterMessage, error) {
	msg := &domain.DeadLetterMessage{}
	var (
		headers                    []byte
		reprocessedAt, discardedAt sql.NullTime
		discardReason              sql.NullString
	)
	err := row.Scan(&msg.ID, &msg.MessageID, &msg.MessageType, &msg.Body, &msg.SourceTopic,
		&msg.FailureReason, &msg.ExceptionDetail, &msg.RetryCount,
		&msg.FirstAttemptAt, &msg.LastAttemptAt, &msg.DeadLetteredAt, &msg.CorrelationID, &headers,
		&msg.IsReprocessed, &reprocessedAt, &msg.IsDiscarded, &discardedAt, &discardReason)
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dead letter headers: %w", err)
		}
	}
	if reprocessedAt.Valid {
		msg.ReprocessedAt = &reprocessedAt.Time
	}
	if discardedAt.Valid {
		msg.DiscardedAt = &discardedAt.Time
	}
	msg.DiscardReason = discardReason.String
	return msg, nil
}
