package cart_repo

import (
	"context"
	"errors"

	"ecommerce/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

type CartRepository interface {
	GetCart(ctx context.Context, clientID int64) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	// DeleteCart removes the cart and all its items. Deleting a missing
	// cart is not an error.
	DeleteCart(ctx context.Context, clientID int64) error
}
