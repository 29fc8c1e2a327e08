// Package stock implements the inventory ledger. A cell is the counter
// for one (product, color, size) combination; Reserve and Release are
// meant to run inside a store.Transact so the locked read, the check and
// the write commit as one unit.
package stock

import (
	"context"
	"errors"

	"github.com/example/vivushop/pkg/store"
)

var (
	ErrInvalidQuantity   = errors.New("stock: quantity must be greater than zero")
	ErrNoStockCell       = errors.New("stock: no stock cell for product, color and size")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
)

// Reserve decrements a cell by qty. It fails with ErrInsufficientStock
// and no side effect when fewer than qty units are available; the cell
// can never go negative.
func Reserve(ctx context.Context, s store.Store, productID, colorID, sizeID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	cell, err := s.StockForUpdate(ctx, productID, colorID, sizeID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoStockCell
	}
	if err != nil {
		return err
	}

	if cell.Stock < qty {
		return ErrInsufficientStock
	}
	cell.Stock -= qty
	return s.SaveStock(ctx, cell)
}

// Release returns qty units to a cell. It increments unconditionally;
// calling it once per successful reservation is the caller's job.
func Release(ctx context.Context, s store.Store, productID, colorID, sizeID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	cell, err := s.StockForUpdate(ctx, productID, colorID, sizeID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoStockCell
	}
	if err != nil {
		return err
	}

	cell.Stock += qty
	return s.SaveStock(ctx, cell)
}
