package payment

import (
	"context"
	"errors"
	"strconv"

	"github.com/example/vivushop/pkg/models"
	"github.com/example/vivushop/pkg/stock"
	"github.com/example/vivushop/pkg/store"
	"go.uber.org/zap"
)

// Verifier checks callback authenticity. Satisfied by *Client.
type Verifier interface {
	VerifySignature(params map[string]string) bool
}

// Cache mirrors the order summary cache. Satisfied by
// *repository.RedisRepository.
type Cache interface {
	CacheOrder(ctx context.Context, order *models.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

// Audit records callback outcomes. Satisfied by
// *repository.MongoRepository.
type Audit interface {
	PaymentEvent(ctx context.Context, orderID, action string, data map[string]interface{}) error
}

// Notifier is told about terminal order transitions. Satisfied by
// *notify.Service.
type Notifier interface {
	OrderConfirmed(orderID, userID string)
	OrderRolledBack(orderID, reason string)
}

// Result is the machine-readable answer returned to the gateway.
type Result struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// Reconciler drives the per-order payment state machine:
// pending-payment -> finalized | rolled-back, both terminal.
type Reconciler struct {
	store    store.Store
	verifier Verifier
	cache    Cache
	audit    Audit
	notifier Notifier
	logger   *zap.Logger
}

func NewReconciler(s store.Store, verifier Verifier, cache Cache, audit Audit, notifier Notifier, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:    s,
		verifier: verifier,
		cache:    cache,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleCallback consumes one gateway IPN callback. The returned Result
// always carries a gateway response code; a non-nil error means the
// reconciliation itself failed and the caller should answer with a
// 500-class status so the gateway retries.
func (r *Reconciler) HandleCallback(ctx context.Context, params map[string]string) (Result, error) {
	txnRef := params["vnp_TxnRef"]
	respCode := params["vnp_ResponseCode"]
	if txnRef == "" || respCode == "" {
		return Result{RspCode: RspInvalidRequest, Message: "Invalid request"}, nil
	}

	if !r.verifier.VerifySignature(params) {
		r.logger.Warn("payment callback with invalid signature",
			zap.String("order_id", txnRef))
		r.auditEvent(txnRef, "callback_invalid_signature", map[string]interface{}{
			"vnp_ResponseCode": respCode,
		})
		return Result{RspCode: RspInvalidSignature, Message: "Invalid signature"}, nil
	}

	var (
		res        Result
		confirmed  *models.Order
		rolledBack bool
	)

	err := r.store.Transact(ctx, func(s store.Store) error {
		order, err := s.GetOrder(ctx, txnRef)
		if errors.Is(err, store.ErrNotFound) {
			// The order may have been cancelled or rolled back by an
			// earlier callback; a terminal answer, not an error.
			res = Result{RspCode: RspOrderNotFound, Message: "Order not found"}
			return nil
		}
		if err != nil {
			return err
		}

		if order.Finalized() {
			res = Result{RspCode: RspAlreadyConfirmed, Message: "Order already updated"}
			return nil
		}

		if !amountMatches(params["vnp_Amount"], order.TotalPrice) {
			if err := r.rollbackOrder(ctx, s, order); err != nil {
				return err
			}
			rolledBack = true
			res = Result{RspCode: RspInvalidAmount, Message: "Invalid amount"}
			return nil
		}

		if respCode == RspSuccess {
			order.VnpBankCode = params["vnp_BankCode"]
			order.VnpBankTranNo = params["vnp_BankTranNo"]
			order.VnpCardType = params["vnp_CardType"]
			order.VnpTransactionNo = params["vnp_TransactionNo"]
			order.VnpResponseCode = respCode
			order.VnpTransactionStatus = params["vnp_TransactionStatus"]
			order.PaymentMethod = models.PaymentBankTransfer
			order.Status = models.OrderStatusConfirmed
			if err := s.SaveOrder(ctx, order); err != nil {
				return err
			}
			confirmed = order
			res = Result{RspCode: RspSuccess, Message: "Confirm Success"}
			return nil
		}

		// Declined: restore the stock and delete the order in the same
		// transaction. The callback is still acknowledged as processed.
		if err := r.rollbackOrder(ctx, s, order); err != nil {
			return err
		}
		rolledBack = true
		res = Result{RspCode: RspSuccess, Message: "Confirm Success"}
		return nil
	})
	if err != nil {
		r.logger.Error("payment reconciliation failed",
			zap.String("order_id", txnRef), zap.Error(err))
		return Result{RspCode: RspInvalidRequest, Message: "Internal error"}, err
	}

	switch {
	case confirmed != nil:
		r.logger.Info("order payment confirmed",
			zap.String("order_id", confirmed.OrderID),
			zap.String("txn_no", confirmed.VnpTransactionNo))
		if r.cache != nil {
			if err := r.cache.CacheOrder(ctx, confirmed); err != nil {
				r.logger.Warn("failed to refresh order cache", zap.Error(err))
			}
		}
		if r.notifier != nil {
			r.notifier.OrderConfirmed(confirmed.OrderID, confirmed.UserID)
		}
		r.auditEvent(txnRef, "payment_confirmed", map[string]interface{}{
			"txn_no":    confirmed.VnpTransactionNo,
			"bank_code": confirmed.VnpBankCode,
		})
	case rolledBack:
		r.logger.Info("order rolled back on payment callback",
			zap.String("order_id", txnRef),
			zap.String("response_code", respCode))
		if r.cache != nil {
			if err := r.cache.InvalidateOrder(ctx, txnRef); err != nil {
				r.logger.Warn("failed to drop order cache", zap.Error(err))
			}
		}
		if r.notifier != nil {
			r.notifier.OrderRolledBack(txnRef, respCode)
		}
		r.auditEvent(txnRef, "payment_rolled_back", map[string]interface{}{
			"response_code": respCode,
			"rsp_code":      res.RspCode,
		})
	}

	return res, nil
}

// rollbackOrder restores the stock reserved by every line and deletes
// the order. Callers run it inside a transaction so the release and the
// delete commit together.
func (r *Reconciler) rollbackOrder(ctx context.Context, s store.Store, order *models.Order) error {
	lines, err := s.LinesByOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := stock.Release(ctx, s, line.ProductID, line.ColorID, line.SizeID, line.Quantity); err != nil {
			return err
		}
	}
	return s.DeleteOrder(ctx, order.OrderID)
}

func (r *Reconciler) auditEvent(orderID, action string, data map[string]interface{}) {
	if r.audit == nil {
		return
	}
	go func() {
		if err := r.audit.PaymentEvent(context.Background(), orderID, action, data); err != nil {
			r.logger.Warn("failed to write audit log",
				zap.String("action", action), zap.Error(err))
		}
	}()
}

// amountMatches compares the callback amount (hundredths of the currency
// unit) with the stored order total. An absent amount is tolerated; a
// present but unparsable or different one is not.
func amountMatches(raw string, totalPrice int64) bool {
	if raw == "" {
		return true
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return amount == totalPrice*100
}
