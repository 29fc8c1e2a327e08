// Package order converts a cart selection into a durable order. The
// builder validates the requested items against the stock ledger,
// reserves stock and persists the order and its lines in one
// transaction, so a partially built order can never be observed.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/vivushop/pkg/idgen"
	"github.com/example/vivushop/pkg/models"
	"github.com/example/vivushop/pkg/stock"
	"github.com/example/vivushop/pkg/store"
	"go.uber.org/zap"
)

// Redirector builds the outbound payment URL. Satisfied by
// *payment.Client.
type Redirector interface {
	BuildRedirectURL(ctx context.Context, order *models.Order, clientIP string, createdAt time.Time) (string, error)
}

// Cache mirrors the order summary cache. Satisfied by
// *repository.RedisRepository.
type Cache interface {
	CacheOrder(ctx context.Context, order *models.Order) error
}

// Audit records order lifecycle events. Satisfied by
// *repository.MongoRepository.
type Audit interface {
	OrderEvent(ctx context.Context, orderID, action string, data map[string]interface{}) error
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	ColorID   string `json:"color_id"`
	SizeID    string `json:"size_id"`
	Quantity  int    `json:"quantity"`
}

type DeliveryInfo struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type CreateRequest struct {
	UserID        string
	Items         []ItemRequest
	Delivery      DeliveryInfo
	PaymentMethod string
	Note          string
	ClientIP      string
}

// LineDetail is the per-line view returned to the caller.
type LineDetail struct {
	OrderLineID string `json:"orderline_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ColorID     string `json:"color_id"`
	ColorName   string `json:"color_name"`
	SizeID      string `json:"size_id"`
	SizeName    string `json:"size_name"`
	Quantity    int    `json:"quantity"`
	SellPrice   int64  `json:"sell_price"`
	Subtotal    int64  `json:"subtotal"`
}

// CreateResult is either a persisted order with its lines or, for
// gateway-based payment, a redirect URL.
type CreateResult struct {
	Order       *models.Order `json:"order,omitempty"`
	Lines       []LineDetail  `json:"order_lines,omitempty"`
	User        *models.User  `json:"user,omitempty"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

type Builder struct {
	store          store.Store
	pay            Redirector
	cache          Cache
	audit          Audit
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

func NewBuilder(s store.Store, pay Redirector, cache Cache, audit Audit, gatewayTimeout time.Duration, logger *zap.Logger) *Builder {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Builder{
		store:          s,
		pay:            pay,
		cache:          cache,
		audit:          audit,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// Create validates the request, reserves stock for every item and
// persists the order atomically. Per-item failures are collected into an
// ItemErrors and abort the whole attempt; nothing is left behind.
func (b *Builder) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Delivery.FullName == "" || req.Delivery.Phone == "" || req.Delivery.Address == "" {
		return nil, ErrMissingDelivery
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentCashOnDelivery
	}

	var result *CreateResult
	err := b.store.Transact(ctx, func(s store.Store) error {
		user, err := s.GetUser(ctx, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		user.FullName = req.Delivery.FullName
		user.Phone = req.Delivery.Phone
		user.Address = req.Delivery.Address
		if err := s.SaveUser(ctx, user); err != nil {
			return err
		}

		now := time.Now()
		ord := &models.Order{
			OrderID:       idgen.NewOrderID(),
			UserID:        user.ID,
			Status:        models.OrderStatusPending,
			Note:          req.Note,
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.CreateOrder(ctx, ord); err != nil {
			return err
		}

		var (
			itemErrs   ItemErrors
			totalPrice int64
			details    []LineDetail
		)
		for i, item := range req.Items {
			detail, itemErr, err := b.buildLine(ctx, s, ord, i, item)
			if err != nil {
				return err
			}
			if itemErr != nil {
				itemErrs = append(itemErrs, *itemErr)
				continue
			}
			totalPrice += detail.Subtotal
			details = append(details, *detail)
		}

		// All-or-nothing: any failed item aborts the transaction and
		// with it every reservation and line written above.
		if len(itemErrs) > 0 {
			return itemErrs
		}

		ord.TotalPrice = totalPrice
		if err := s.SaveOrder(ctx, ord); err != nil {
			return err
		}

		result = &CreateResult{Order: ord, Lines: details, User: user}

		if req.PaymentMethod == models.PaymentVNPay {
			payCtx, cancel := context.WithTimeout(ctx, b.gatewayTimeout)
			defer cancel()
			redirect, err := b.pay.BuildRedirectURL(payCtx, ord, req.ClientIP, now)
			if err != nil {
				return &GatewayError{Err: err}
			}
			result.RedirectURL = redirect
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("order created",
		zap.String("order_id", result.Order.OrderID),
		zap.String("user_id", req.UserID),
		zap.Int("lines", len(result.Lines)),
		zap.Int64("total_price", result.Order.TotalPrice),
		zap.String("payment_method", req.PaymentMethod))

	if b.cache != nil {
		if err := b.cache.CacheOrder(ctx, result.Order); err != nil {
			b.logger.Warn("failed to cache order", zap.Error(err))
		}
	}
	if b.audit != nil {
		ord := result.Order
		go func() {
			if err := b.audit.OrderEvent(context.Background(), ord.OrderID, "order_created", map[string]interface{}{
				"user_id":        ord.UserID,
				"total_price":    ord.TotalPrice,
				"payment_method": ord.PaymentMethod,
			}); err != nil {
				b.logger.Warn("failed to write audit log", zap.Error(err))
			}
		}()
	}

	return result, nil
}

// buildLine resolves one requested item, reserves its stock and writes
// the order line. A nil *ItemError with a nil error means the line was
// created; a non-nil *ItemError is a per-item failure to be aggregated.
func (b *Builder) buildLine(ctx context.Context, s store.Store, ord *models.Order, idx int, item ItemRequest) (*LineDetail, *ItemError, error) {
	fail := func(reason string) (*LineDetail, *ItemError, error) {
		return nil, &ItemError{
			Index:     idx,
			ProductID: item.ProductID,
			ColorID:   item.ColorID,
			SizeID:    item.SizeID,
			Reason:    reason,
		}, nil
	}

	if item.Quantity <= 0 {
		return fail("quantity must be greater than zero")
	}

	product, err := s.GetProduct(ctx, item.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return fail("unknown product")
	}
	if err != nil {
		return nil, nil, err
	}
	color, err := s.GetColor(ctx, item.ColorID)
	if errors.Is(err, store.ErrNotFound) {
		return fail("unknown color")
	}
	if err != nil {
		return nil, nil, err
	}
	size, err := s.GetSize(ctx, item.SizeID)
	if errors.Is(err, store.ErrNotFound) {
		return fail("unknown size")
	}
	if err != nil {
		return nil, nil, err
	}

	switch err := stock.Reserve(ctx, s, item.ProductID, item.ColorID, item.SizeID, item.Quantity); {
	case errors.Is(err, stock.ErrNoStockCell):
		return fail("no stock for this product, color and size")
	case errors.Is(err, stock.ErrInsufficientStock):
		return fail(fmt.Sprintf("not enough stock for product %q, color %q, size %q", product.Name, color.Name, size.Name))
	case err != nil:
		return nil, nil, err
	}

	line := &models.OrderLine{
		OrderLineID: idgen.NewOrderLineID(),
		OrderID:     ord.OrderID,
		ProductID:   product.ProductID,
		ColorID:     color.ColorID,
		SizeID:      size.SizeID,
		Quantity:    item.Quantity,
		UnitPrice:   product.SellPrice,
		CreatedAt:   ord.CreatedAt,
		UpdatedAt:   ord.CreatedAt,
	}
	if err := s.CreateOrderLine(ctx, line); err != nil {
		return nil, nil, err
	}

	return &LineDetail{
		OrderLineID: line.OrderLineID,
		ProductID:   product.ProductID,
		ProductName: product.Name,
		ColorID:     color.ColorID,
		ColorName:   color.Name,
		SizeID:      size.SizeID,
		SizeName:    size.Name,
		Quantity:    item.Quantity,
		SellPrice:   product.SellPrice,
		Subtotal:    line.Subtotal(),
	}, nil, nil
}
