package outbox_repo

import (
	"context"

	"ecommerce/internal/domain"
)

type OutboxRepository interface {
	CreateMessage(ctx context.Context, msg *domain.OutboxMessage) error
	// ClaimPendingMessages atomically moves up to limit pending rows to
	// PROCESSING and returns them. A claim is exclusive across replicas and
	// expires if the claimant dies before marking the row sent or released.
	ClaimPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkMessageSent(ctx context.Context, id string) error
	// ReleaseMessage puts a claimed row back to PENDING after a failed
	// publish so the next poll retries it without waiting for claim expiry.
	ReleaseMessage(ctx context.Context, id string) error
}
