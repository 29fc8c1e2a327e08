package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/vivushop/pkg/models"
)

// Memory is an in-memory Store. Transactions are serialized by a mutex
// and rolled back by restoring a snapshot, which gives the same
// observable semantics as the MySQL implementation: a failed Transact
// leaves no trace, and concurrent reservations on one cell cannot both
// see the old quantity. It backs the package tests and local runs
// without a database.
type Memory struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	users    map[string]models.User
	products map[string]models.Product
	colors   map[string]models.Color
	sizes    map[string]models.Size
	stock    map[string]models.StockQuantity
	orders   map[string]models.Order
	lines    map[string]models.OrderLine
	nextID   uint
}

func NewMemory() *Memory {
	return &Memory{
		data: &memData{
			users:    make(map[string]models.User),
			products: make(map[string]models.Product),
			colors:   make(map[string]models.Color),
			sizes:    make(map[string]models.Size),
			stock:    make(map[string]models.StockQuantity),
			orders:   make(map[string]models.Order),
			lines:    make(map[string]models.OrderLine),
			nextID:   1,
		},
	}
}

func stockKey(productID, colorID, sizeID string) string {
	return productID + "|" + colorID + "|" + sizeID
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[string]models.User, len(d.users)),
		products: make(map[string]models.Product, len(d.products)),
		colors:   make(map[string]models.Color, len(d.colors)),
		sizes:    make(map[string]models.Size, len(d.sizes)),
		stock:    make(map[string]models.StockQuantity, len(d.stock)),
		orders:   make(map[string]models.Order, len(d.orders)),
		lines:    make(map[string]models.OrderLine, len(d.lines)),
		nextID:   d.nextID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.colors {
		c.colors[k] = v
	}
	for k, v := range d.sizes {
		c.sizes[k] = v
	}
	for k, v := range d.stock {
		c.stock[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.lines {
		c.lines[k] = v
	}
	return c
}

func (m *Memory) Transact(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.data.clone()
	if err := fn(&memTx{data: m.data}); err != nil {
		m.data = snap
		return err
	}
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).GetUser(ctx, id)
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).SaveUser(ctx, user)
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).GetProduct(ctx, id)
}

func (m *Memory) GetColor(ctx context.Context, id string) (*models.Color, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).GetColor(ctx, id)
}

func (m *Memory) GetSize(ctx context.Context, id string) (*models.Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).GetSize(ctx, id)
}

func (m *Memory) StockForUpdate(ctx context.Context, productID, colorID, sizeID string) (*models.StockQuantity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).StockForUpdate(ctx, productID, colorID, sizeID)
}

func (m *Memory) SaveStock(ctx context.Context, cell *models.StockQuantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).SaveStock(ctx, cell)
}

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).CreateOrder(ctx, order)
}

func (m *Memory) SaveOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).SaveOrder(ctx, order)
}

func (m *Memory) DeleteOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).DeleteOrder(ctx, orderID)
}

func (m *Memory) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).CreateOrderLine(ctx, line)
}

func (m *Memory) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).GetOrder(ctx, orderID)
}

func (m *Memory) LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).LinesByOrder(ctx, orderID)
}

func (m *Memory) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{data: m.data}).OrdersByUser(ctx, userID)
}

// Seed helpers for tests and local bootstrap.

func (m *Memory) PutUser(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.users[user.ID] = user
}

func (m *Memory) PutProduct(product models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.products[product.ProductID] = product
}

func (m *Memory) PutColor(color models.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.colors[color.ColorID] = color
}

func (m *Memory) PutSize(size models.Size) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.sizes[size.SizeID] = size
}

func (m *Memory) PutStock(cell models.StockQuantity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cell.ID == 0 {
		cell.ID = m.data.nextID
		m.data.nextID++
	}
	m.data.stock[stockKey(cell.ProductID, cell.ColorID, cell.SizeID)] = cell
}

// StockLevel reads the current quantity of a cell, or -1 if the cell
// does not exist.
func (m *Memory) StockLevel(productID, colorID, sizeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cell, ok := m.data.stock[stockKey(productID, colorID, sizeID)]
	if !ok {
		return -1
	}
	return cell.Stock
}

// memTx operates on the live data set while the owning Memory holds the
// transaction lock.
type memTx struct {
	data *memData
}

// Transact on a transactional store joins the enclosing transaction.
func (t *memTx) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *memTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, ok := t.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (t *memTx) SaveUser(ctx context.Context, user *models.User) error {
	t.data.users[user.ID] = *user
	return nil
}

func (t *memTx) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, ok := t.data.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &product, nil
}

func (t *memTx) GetColor(ctx context.Context, id string) (*models.Color, error) {
	color, ok := t.data.colors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &color, nil
}

func (t *memTx) GetSize(ctx context.Context, id string) (*models.Size, error) {
	size, ok := t.data.sizes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &size, nil
}

func (t *memTx) StockForUpdate(ctx context.Context, productID, colorID, sizeID string) (*models.StockQuantity, error) {
	cell, ok := t.data.stock[stockKey(productID, colorID, sizeID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &cell, nil
}

func (t *memTx) SaveStock(ctx context.Context, cell *models.StockQuantity) error {
	t.data.stock[stockKey(cell.ProductID, cell.ColorID, cell.SizeID)] = *cell
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	t.data.orders[order.OrderID] = *order
	return nil
}

func (t *memTx) SaveOrder(ctx context.Context, order *models.Order) error {
	t.data.orders[order.OrderID] = *order
	return nil
}

func (t *memTx) DeleteOrder(ctx context.Context, orderID string) error {
	delete(t.data.orders, orderID)
	for id, line := range t.data.lines {
		if line.OrderID == orderID {
			delete(t.data.lines, id)
		}
	}
	return nil
}

func (t *memTx) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	t.data.lines[line.OrderLineID] = *line
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := t.data.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (t *memTx) LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	for _, line := range t.data.lines {
		if line.OrderID == orderID {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (t *memTx) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	for _, order := range t.data.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
