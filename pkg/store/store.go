// Package store is the persistence boundary for the shop. The order
// builder and payment reconciler only see the Store interface, so the
// same transactional logic runs against MySQL in production and the
// in-memory implementation in tests.
package store

import (
	"context"
	"errors"

	"github.com/example/vivushop/pkg/models"
)

var ErrNotFound = errors.New("store: record not found")

type Store interface {
	// Transact runs fn inside a transaction. Every write made through
	// the Store handed to fn commits together or not at all. Calling
	// Transact on an already transactional Store joins the enclosing
	// transaction.
	Transact(ctx context.Context, fn func(Store) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetColor(ctx context.Context, id string) (*models.Color, error)
	GetSize(ctx context.Context, id string) (*models.Size, error)

	// StockForUpdate reads a stock cell and holds a write lock on it for
	// the remainder of the enclosing transaction, so concurrent
	// reservations against the same cell serialize.
	StockForUpdate(ctx context.Context, productID, colorID, sizeID string) (*models.StockQuantity, error)
	SaveStock(ctx context.Context, cell *models.StockQuantity) error

	CreateOrder(ctx context.Context, order *models.Order) error
	SaveOrder(ctx context.Context, order *models.Order) error
	// DeleteOrder removes the order and all of its lines.
	DeleteOrder(ctx context.Context, orderID string) error
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
}
