package redelivery_repo

import (
	"context"
	"time"

	"ecommerce/internal/domain"
)

type RedeliveryRepository interface {
	CreateMessage(ctx context.Context, msg *domain.RedeliveryMessage) error
	// ClaimDueMessages atomically pushes the due time of up to limit due rows
	// into the future and returns them, so concurrent pollers cannot pick up
	// the same row. A claimed row that is not deleted (publish failed,
	// claimant crashed) simply comes due again after the claim window.
	ClaimDueMessages(ctx context.Context, now time.Time, limit int) ([]*domain.RedeliveryMessage, error)
	DeleteMessage(ctx context.Context, id string) error
}
