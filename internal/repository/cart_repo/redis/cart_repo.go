package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/cart_repo"
)

// Abandoned carts expire on their own instead of accumulating in Redis.
// Every save refreshes the clock, so active carts never disappear mid-session.
const cartTTL = 7 * 24 * time.Hour

type redisCartRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCartRepository(client *redis.Client, l *zap.Logger) cart_repo.CartRepository {
	return &redisCartRepository{client: client, logger: l}
}

func cartKey(clientID int64) string {
	return fmt.Sprintf("cart:%d", clientID)
}

func (r *redisCartRepository) GetCart(ctx context.Context, clientID int64) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart_repo.ErrCartNotFound
		}
		r.logger.Error("Failed to get cart", zap.Int64("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("failed to get cart for client %d: %w", clientID, err)
	}

	cart := &domain.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart for client %d: %w", clientID, err)
	}
	return cart, nil
}

func (r *redisCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart for client %d: %w", cart.ClientID, err)
	}
	if err := r.client.Set(ctx, cartKey(cart.ClientID), data, cartTTL).Err(); err != nil {
		r.logger.Error("Failed to save cart", zap.Int64("client_id", cart.ClientID), zap.Error(err))
		return fmt.Errorf("failed to save cart for client %d: %w", cart.ClientID, err)
	}
	return nil
}

func (r *redisCartRepository) DeleteCart(ctx context.Context, clientID int64) error {
	if err := r.client.Del(ctx, cartKey(clientID)).Err(); err != nil {
		r.logger.Error("Failed to delete cart", zap.Int64("client_id", clientID), zap.Error(err))
		return fmt.Errorf("failed to delete cart for client %d: %w", clientID, err)
	}
	return nil
}
