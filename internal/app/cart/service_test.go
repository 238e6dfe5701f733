package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/cart_repo"
)

type fakeCartRepo struct {
	carts   map[int64]*domain.Cart
	deletes int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[int64]*domain.Cart)}
}

func (r *fakeCartRepo) GetCart(_ context.Context, clientID int64) (*domain.Cart, error) {
	cart, ok := r.carts[clientID]
	if !ok {
		return nil, cart_repo.ErrCartNotFound
	}
	return cart, nil
}

func (r *fakeCartRepo) SaveCart(_ context.Context, cart *domain.Cart) error {
	r.carts[cart.ClientID] = cart
	return nil
}

func (r *fakeCartRepo) DeleteCart(_ context.Context, clientID int64) error {
	delete(r.carts, clientID)
	r.deletes++
	return nil
}

func TestAddItemCreatesCart(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())

	cart, err := svc.AddItem(context.Background(), 42, domain.CartItem{ProductID: 1, ProductName: "widget", Quantity: 2, UnitPrice: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(42), cart.ClientID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20.0, cart.Total())
}

func TestAddItemMergesQuantities(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 2, UnitPrice: 10})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 3, UnitPrice: 10})
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemRejectsInvalid(t *testing.T) {
	svc := NewCartService(newFakeCartRepo(), zap.NewNop())

	_, err := svc.AddItem(context.Background(), 42, domain.CartItem{ProductID: 1, Quantity: 0, UnitPrice: 10})
	assert.Error(t, err)
}

func TestRemoveItem(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 1, UnitPrice: 10})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 42, domain.CartItem{ProductID: 2, Quantity: 1, UnitPrice: 5})
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestGetCartMissing(t *testing.T) {
	svc := NewCartService(newFakeCartRepo(), zap.NewNop())

	_, err := svc.GetCart(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestReconcileOrderCreatedClearsCart(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 1, UnitPrice: 10})
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileOrderCreated(ctx, "order-1", 42))

	_, err = svc.GetCart(ctx, 42)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestReconcileOrderCreatedDuplicateDeliveryIsNoOp(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 1, UnitPrice: 10})
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileOrderCreated(ctx, "order-1", 42))
	require.NoError(t, svc.ReconcileOrderCreated(ctx, "order-1", 42), "a duplicate of the same fact must succeed")
	assert.Equal(t, 1, repo.deletes)
}

func TestReconcileOrderCreatedNeverTouchesOtherCarts(t *testing.T) {
	repo := newFakeCartRepo()
	svc := NewCartService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 42, domain.CartItem{ProductID: 1, Quantity: 1, UnitPrice: 10})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 43, domain.CartItem{ProductID: 2, Quantity: 1, UnitPrice: 5})
	require.NoError(t, err)

	require.NoError(t, svc.ReconcileOrderCreated(ctx, "order-1", 42))

	other, err := svc.GetCart(ctx, 43)
	require.NoError(t, err)
	assert.Len(t, other.Items, 1)
}
