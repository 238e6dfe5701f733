package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/cart_repo"
)

var ErrCartNotFound = errors.New("cart not found")

type CartService interface {
	GetCart(ctx context.Context, clientID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, clientID int64, item domain.CartItem) (*domain.Cart, error)
	RemoveItem(ctx context.Context, clientID, productID int64) (*domain.Cart, error)
	// ReconcileOrderCreated retires the cart that produced an order. Safe
	// under duplicate delivery: a missing cart is a warning, not an error.
	ReconcileOrderCreated(ctx context.Context, orderID string, clientID int64) error
}

type cartService struct {
	cartRepo cart_repo.CartRepository
	logger   *zap.Logger
}

func NewCartService(cartRepo cart_repo.CartRepository, logger *zap.Logger) CartService {
	return &cartService{cartRepo: cartRepo, logger: logger}
}

func (s *cartService) GetCart(ctx context.Context, clientID int64) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetCart(ctx, clientID)
	if err != nil {
		if errors.Is(err, cart_repo.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, clientID int64, item domain.CartItem) (*domain.Cart, error) {
	if item.ProductID <= 0 || item.Quantity <= 0 {
		return nil, fmt.Errorf("invalid cart item for product %d", item.ProductID)
	}

	cart, err := s.cartRepo.GetCart(ctx, clientID)
	if err != nil {
		if !errors.Is(err, cart_repo.ErrCartNotFound) {
			return nil, fmt.Errorf("failed to get cart: %w", err)
		}
		cart = &domain.Cart{ClientID: clientID}
	}

	merged := false
	for i, existing := range cart.Items {
		if existing.ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}
	cart.UpdatedAt = time.Now().UTC()

	if err := s.cartRepo.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, clientID, productID int64) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetCart(ctx, clientID)
	if err != nil {
		if errors.Is(err, cart_repo.ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items
	cart.UpdatedAt = time.Now().UTC()

	if err := s.cartRepo.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) ReconcileOrderCreated(ctx context.Context, orderID string, clientID int64) error {
	cart, err := s.cartRepo.GetCart(ctx, clientID)
	if err != nil {
		if errors.Is(err, cart_repo.ErrCartNotFound) {
			// Expected under at-least-once delivery: a duplicate of the
			// same fact already cleared the cart.
			s.logger.Warn("No cart found for client after order was created",
				zap.Int64("client_id", clientID),
				zap.String("order_id", orderID))
			return nil
		}
		return fmt.Errorf("failed to get cart for reconciliation: %w", err)
	}

	if err := s.cartRepo.DeleteCart(ctx, clientID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	s.logger.Info("Cart cleared after order creation",
		zap.Int64("client_id", clientID),
		zap.String("order_id", orderID),
		zap.Int("item_count", len(cart.Items)))
	return nil
}
