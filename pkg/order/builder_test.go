package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/vivushop/pkg/models"
	"github.com/example/vivushop/pkg/order"
	"github.com/example/vivushop/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRedirector struct {
	url string
	err error
}

func (f *fakeRedirector) BuildRedirectURL(ctx context.Context, ord *models.Order, clientIP string, createdAt time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func seedCatalog(mem *store.Memory) {
	mem.PutUser(models.User{ID: "user-1", Name: "An", Email: "an@example.com"})
	mem.PutProduct(models.Product{ProductID: "P1", Name: "Ao thun", SellPrice: 125000})
	mem.PutProduct(models.Product{ProductID: "P2", Name: "Quan jean", SellPrice: 300000})
	mem.PutColor(models.Color{ColorID: "RED", Name: "Red"})
	mem.PutColor(models.Color{ColorID: "BLU", Name: "Blue"})
	mem.PutSize(models.Size{SizeID: "M", Name: "M"})
	mem.PutSize(models.Size{SizeID: "L", Name: "L"})
	mem.PutStock(models.StockQuantity{ProductID: "P1", ColorID: "RED", SizeID: "M", Stock: 5})
	mem.PutStock(models.StockQuantity{ProductID: "P2", ColorID: "BLU", SizeID: "L", Stock: 10})
}

func newTestBuilder(mem *store.Memory, pay order.Redirector) *order.Builder {
	return order.NewBuilder(mem, pay, nil, nil, time.Second, zap.NewNop())
}

func validRequest(items ...order.ItemRequest) order.CreateRequest {
	return order.CreateRequest{
		UserID: "user-1",
		Items:  items,
		Delivery: order.DeliveryInfo{
			FullName: "Nguyen Van An",
			Phone:    "0901234567",
			Address:  "1 Le Loi, Q1",
		},
		PaymentMethod: models.PaymentCashOnDelivery,
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	res, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 2},
	))
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	require.Len(t, res.Lines, 1)

	assert.Equal(t, models.OrderStatusPending, res.Order.Status)
	assert.Equal(t, int64(2*125000), res.Order.TotalPrice)
	assert.Equal(t, int64(2*125000), res.Lines[0].Subtotal)
	assert.Equal(t, 3, mem.StockLevel("P1", "RED", "M"), "stock 5 minus reserved 2")

	// Durable and readable back through the queries.
	got, lines, err := b.GetOrder(context.Background(), "user-1", res.Order.OrderID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, got.TotalPrice, lines[0].Subtotal())

	// Delivery info written to the user.
	user, err := mem.GetUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Nguyen Van An", user.FullName)
	assert.Equal(t, "1 Le Loi, Q1", user.Address)
}

func TestCreateOrderTotalIsSumOfSubtotals(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	res, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 2},
		order.ItemRequest{ProductID: "P2", ColorID: "BLU", SizeID: "L", Quantity: 3},
	))
	require.NoError(t, err)

	var sum int64
	for _, line := range res.Lines {
		sum += line.Subtotal
	}
	assert.Equal(t, sum, res.Order.TotalPrice)
	assert.Equal(t, int64(2*125000+3*300000), sum)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	_, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 10},
	))

	var itemErrs order.ItemErrors
	require.True(t, errors.As(err, &itemErrs))
	require.Len(t, itemErrs, 1)
	assert.Contains(t, itemErrs[0].Reason, "not enough stock")

	assert.Equal(t, 5, mem.StockLevel("P1", "RED", "M"), "stock untouched")
	orders, err := mem.OrdersByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders, "no order row persisted")
}

func TestCreateOrderAllOrNothing(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	// Item 2 of 3 fails on stock; items 1 and 3 are individually fine.
	_, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 2},
		order.ItemRequest{ProductID: "P2", ColorID: "BLU", SizeID: "L", Quantity: 99},
		order.ItemRequest{ProductID: "P2", ColorID: "BLU", SizeID: "L", Quantity: 1},
	))

	var itemErrs order.ItemErrors
	require.True(t, errors.As(err, &itemErrs))
	require.Len(t, itemErrs, 1)
	assert.Equal(t, 1, itemErrs[0].Index)

	// Every reservation made in the attempt was released.
	assert.Equal(t, 5, mem.StockLevel("P1", "RED", "M"))
	assert.Equal(t, 10, mem.StockLevel("P2", "BLU", "L"))
	orders, err := mem.OrdersByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderAggregatesItemErrors(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	_, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "NOPE", ColorID: "RED", SizeID: "M", Quantity: 1},
		order.ItemRequest{ProductID: "P1", ColorID: "GRN", SizeID: "M", Quantity: 1},
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 50},
	))

	var itemErrs order.ItemErrors
	require.True(t, errors.As(err, &itemErrs))
	require.Len(t, itemErrs, 3)
	assert.Equal(t, "unknown product", itemErrs[0].Reason)
	assert.Equal(t, "unknown color", itemErrs[1].Reason)
	assert.Contains(t, itemErrs[2].Reason, "not enough stock")
}

func TestCreateOrderValidation(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	t.Run("missing delivery", func(t *testing.T) {
		req := validRequest(order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 1})
		req.Delivery.Phone = ""
		_, err := b.Create(context.Background(), req)
		assert.ErrorIs(t, err, order.ErrMissingDelivery)
	})

	t.Run("no items", func(t *testing.T) {
		_, err := b.Create(context.Background(), validRequest())
		assert.ErrorIs(t, err, order.ErrNoItems)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := validRequest(order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 1})
		req.UserID = "ghost"
		_, err := b.Create(context.Background(), req)
		assert.ErrorIs(t, err, order.ErrUserNotFound)
	})
}

func TestCreateOrderGatewayRedirect(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{url: "https://pay.example/checkout?x=1"})

	req := validRequest(order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 1})
	req.PaymentMethod = models.PaymentVNPay

	res, err := b.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout?x=1", res.RedirectURL)

	// Order and reservation are durable, awaiting the callback.
	assert.Equal(t, 4, mem.StockLevel("P1", "RED", "M"))
	_, err = mem.GetOrder(context.Background(), res.Order.OrderID)
	assert.NoError(t, err)
}

func TestCreateOrderGatewayFailureRollsBack(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{err: fmt.Errorf("gateway timeout")})

	req := validRequest(order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 2})
	req.PaymentMethod = models.PaymentVNPay

	_, err := b.Create(context.Background(), req)
	var gatewayErr *order.GatewayError
	require.True(t, errors.As(err, &gatewayErr))

	assert.Equal(t, 5, mem.StockLevel("P1", "RED", "M"), "reservation released")
	orders, err := mem.OrdersByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, orders, "order deleted with the rollback")
}

func TestCreateOrderConcurrentReservations(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	// 20 buyers race for 5 units; exactly 5 single-unit orders can win.
	const buyers = 20
	for i := 0; i < buyers; i++ {
		mem.PutUser(models.User{ID: fmt.Sprintf("user-%d", i), Email: fmt.Sprintf("u%d@example.com", i)})
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest(order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 1})
			req.UserID = fmt.Sprintf("user-%d", i)
			_, results[i] = b.Create(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range results {
		if err == nil {
			won++
		} else {
			var itemErrs order.ItemErrors
			require.True(t, errors.As(err, &itemErrs))
		}
	}
	assert.Equal(t, 5, won)
	assert.Equal(t, 0, mem.StockLevel("P1", "RED", "M"))
}

func TestListOrders(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	b := newTestBuilder(mem, &fakeRedirector{})

	for i := 0; i < 3; i++ {
		_, err := b.Create(context.Background(), validRequest(
			order.ItemRequest{ProductID: "P2", ColorID: "BLU", SizeID: "L", Quantity: 1},
		))
		require.NoError(t, err)
	}

	orders, err := b.ListOrders(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestGetOrderOtherUser(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(mem)
	mem.PutUser(models.User{ID: "user-2", Email: "b@example.com"})
	b := newTestBuilder(mem, &fakeRedirector{})

	res, err := b.Create(context.Background(), validRequest(
		order.ItemRequest{ProductID: "P1", ColorID: "RED", SizeID: "M", Quantity: 1},
	))
	require.NoError(t, err)

	_, _, err = b.GetOrder(context.Background(), "user-2", res.Order.OrderID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}
