package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingDelivery = errors.New("order: missing delivery information")
	ErrNoItems         = errors.New("order: no products selected")
	ErrUserNotFound    = errors.New("order: user not found")
	ErrNotFound        = errors.New("order: not found")
)

// ItemError describes why one requested item could not be ordered.
type ItemError struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	ColorID   string `json:"color_id,omitempty"`
	SizeID    string `json:"size_id,omitempty"`
	Reason    string `json:"reason"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d (product %q): %s", e.Index, e.ProductID, e.Reason)
}

// ItemErrors aggregates per-item failures. Any non-empty list aborts the
// whole order-creation attempt.
type ItemErrors []ItemError

func (e ItemErrors) Error() string {
	msgs := make([]string, len(e))
	for i, item := range e {
		msgs[i] = item.Error()
	}
	return strings.Join(msgs, ", ")
}

// GatewayError wraps a failure to obtain a payment redirect from the
// gateway, including timeouts. It forces the same full rollback as a
// failed stock check.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("order: payment gateway: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
