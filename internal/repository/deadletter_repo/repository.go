package deadletter_repo

import (
	"context"
	"errors"

	"ecommerce/internal/domain"
)

var ErrDeadLetterNotFound = errors.New("dead letter message not found")

type DeadLetterRepository interface {
	CreateMessage(ctx context.Context, msg *domain.DeadLetterMessage) error
	GetMessageByID(ctx context.Context, id string) (*domain.DeadLetterMessage, error)
	ListMessages(ctx context.Context, limit, offset int) ([]*domain.DeadLetterMessage, error)
	MarkReprocessed(ctx context.Context, id string) error
	MarkDiscarded(ctx context.Context, id, reason string) error
}
