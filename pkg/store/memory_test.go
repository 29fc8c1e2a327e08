package store

import (
	"context"
	"errors"
	"testing"

	"github.com/example/vivushop/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTransactRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.PutStock(models.StockQuantity{ProductID: "P1", ColorID: "C1", SizeID: "S1", Stock: 5})

	boom := errors.New("boom")
	err := mem.Transact(ctx, func(s Store) error {
		cell, err := s.StockForUpdate(ctx, "P1", "C1", "S1")
		require.NoError(t, err)
		cell.Stock = 0
		require.NoError(t, s.SaveStock(ctx, cell))
		require.NoError(t, s.CreateOrder(ctx, &models.Order{OrderID: "OD1", UserID: "u1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 5, mem.StockLevel("P1", "C1", "S1"))
	_, err = mem.GetOrder(ctx, "OD1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTransactCommits(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	err := mem.Transact(ctx, func(s Store) error {
		if err := s.CreateOrder(ctx, &models.Order{OrderID: "OD1", UserID: "u1"}); err != nil {
			return err
		}
		return s.CreateOrderLine(ctx, &models.OrderLine{OrderLineID: "OL1", OrderID: "OD1", Quantity: 1})
	})
	require.NoError(t, err)

	ord, err := mem.GetOrder(ctx, "OD1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ord.UserID)
	lines, err := mem.LinesByOrder(ctx, "OD1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestMemoryNestedTransactJoins(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	boom := errors.New("boom")
	err := mem.Transact(ctx, func(s Store) error {
		if err := s.CreateOrder(ctx, &models.Order{OrderID: "OD1"}); err != nil {
			return err
		}
		// The inner Transact joins the outer one, so the outer error
		// discards its writes too.
		if err := s.Transact(ctx, func(inner Store) error {
			return inner.CreateOrder(ctx, &models.Order{OrderID: "OD2"})
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = mem.GetOrder(ctx, "OD1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = mem.GetOrder(ctx, "OD2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDeleteOrderCascades(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.CreateOrder(ctx, &models.Order{OrderID: "OD1"}))
	require.NoError(t, mem.CreateOrderLine(ctx, &models.OrderLine{OrderLineID: "OL1", OrderID: "OD1"}))
	require.NoError(t, mem.CreateOrderLine(ctx, &models.OrderLine{OrderLineID: "OL2", OrderID: "OD1"}))

	require.NoError(t, mem.DeleteOrder(ctx, "OD1"))

	lines, err := mem.LinesByOrder(ctx, "OD1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
