package models

import (
	"time"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment methods.
const (
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentVNPay          = "vnpay"
	PaymentBankTransfer   = "bank_transfer"
)

type Order struct {
	OrderID       string `gorm:"primaryKey;type:varchar(50)" json:"order_id"`
	UserID        string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Status        string `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Note          string `gorm:"type:varchar(255)" json:"note"`
	TotalPrice    int64  `gorm:"not null;default:0" json:"total_price"`
	PaymentMethod string `gorm:"type:varchar(50)" json:"payment_method"`

	// Gateway transaction fields, recorded when the payment callback
	// confirms the order.
	VnpBankCode          string `gorm:"type:varchar(20)" json:"vnp_bank_code,omitempty"`
	VnpBankTranNo        string `gorm:"type:varchar(50)" json:"vnp_bank_tran_no,omitempty"`
	VnpCardType          string `gorm:"type:varchar(20)" json:"vnp_card_type,omitempty"`
	VnpTransactionNo     string `gorm:"type:varchar(50)" json:"vnp_transaction_no,omitempty"`
	VnpResponseCode      string `gorm:"type:varchar(10)" json:"vnp_response_code,omitempty"`
	VnpTransactionStatus string `gorm:"type:varchar(10)" json:"vnp_transaction_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Finalized reports whether a payment callback has already been applied.
func (o *Order) Finalized() bool {
	return o.Status != OrderStatusPending || o.VnpTransactionNo != ""
}

type OrderLine struct {
	OrderLineID string `gorm:"primaryKey;type:varchar(50)" json:"orderline_id"`
	OrderID     string `gorm:"type:varchar(50);not null;index" json:"order_id"`
	ProductID   string `gorm:"type:varchar(10);not null" json:"product_id"`
	ColorID     string `gorm:"type:varchar(10);not null" json:"color_id"`
	SizeID      string `gorm:"type:varchar(10);not null" json:"size_id"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	// UnitPrice is the product sell price captured at order time so the
	// line total survives later catalog price changes.
	UnitPrice int64 `gorm:"not null" json:"unit_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OrderLine) TableName() string {
	return "order_lines"
}

func (l *OrderLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
