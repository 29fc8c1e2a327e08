package order

import (
	"context"
	"errors"

	"github.com/example/vivushop/pkg/models"
	"github.com/example/vivushop/pkg/store"
)

// ListOrders returns the user's orders, newest first.
func (b *Builder) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return b.store.OrdersByUser(ctx, userID)
}

// GetOrder returns one of the user's orders with its lines. Orders
// belonging to other users are reported as not found.
func (b *Builder) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, []models.OrderLine, error) {
	ord, err := b.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if ord.UserID != userID {
		return nil, nil, ErrNotFound
	}

	lines, err := b.store.LinesByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return ord, lines, nil
}
