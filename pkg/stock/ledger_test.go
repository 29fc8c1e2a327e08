package stock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/example/vivushop/pkg/models"
	"github.com/example/vivushop/pkg/stock"
	"github.com/example/vivushop/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCell(stockLevel int) *store.Memory {
	mem := store.NewMemory()
	mem.PutStock(models.StockQuantity{ProductID: "P1", ColorID: "RED", SizeID: "M", Stock: stockLevel})
	return mem
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements on success", func(t *testing.T) {
		mem := newCell(5)
		err := mem.Transact(ctx, func(s store.Store) error {
			return stock.Reserve(ctx, s, "P1", "RED", "M", 3)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, mem.StockLevel("P1", "RED", "M"))
	})

	t.Run("insufficient stock leaves cell unchanged", func(t *testing.T) {
		mem := newCell(5)
		err := mem.Transact(ctx, func(s store.Store) error {
			return stock.Reserve(ctx, s, "P1", "RED", "M", 6)
		})
		assert.ErrorIs(t, err, stock.ErrInsufficientStock)
		assert.Equal(t, 5, mem.StockLevel("P1", "RED", "M"))
	})

	t.Run("exact remaining stock succeeds", func(t *testing.T) {
		mem := newCell(5)
		err := mem.Transact(ctx, func(s store.Store) error {
			return stock.Reserve(ctx, s, "P1", "RED", "M", 5)
		})
		require.NoError(t, err)
		assert.Equal(t, 0, mem.StockLevel("P1", "RED", "M"))
	})

	t.Run("unknown cell", func(t *testing.T) {
		mem := newCell(5)
		err := mem.Transact(ctx, func(s store.Store) error {
			return stock.Reserve(ctx, s, "P1", "GRN", "M", 1)
		})
		assert.ErrorIs(t, err, stock.ErrNoStockCell)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		mem := newCell(5)
		err := mem.Transact(ctx, func(s store.Store) error {
			return stock.Reserve(ctx, s, "P1", "RED", "M", 0)
		})
		assert.ErrorIs(t, err, stock.ErrInvalidQuantity)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	mem := newCell(2)

	err := mem.Transact(ctx, func(s store.Store) error {
		return stock.Release(ctx, s, "P1", "RED", "M", 3)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, mem.StockLevel("P1", "RED", "M"))
}

// Exactly as many concurrent reservations succeed as the stock allows;
// the counter never goes negative.
func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	mem := newCell(7)

	const attempts = 25
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mem.Transact(ctx, func(s store.Store) error {
				return stock.Reserve(ctx, s, "P1", "RED", "M", 1)
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, stock.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 7, succeeded)
	assert.Equal(t, 0, mem.StockLevel("P1", "RED", "M"))
}
