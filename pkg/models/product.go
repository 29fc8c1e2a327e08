package models

import (
	"time"
)

type Product struct {
	ProductID   string `gorm:"primaryKey;type:varchar(10)" json:"product_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	// Prices are stored in minor currency units.
	ImportPrice int64 `gorm:"not null" json:"import_price"`
	SellPrice   int64 `gorm:"not null" json:"sell_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

type Color struct {
	ColorID string `gorm:"primaryKey;type:varchar(10)" json:"color_id"`
	Name    string `gorm:"type:varchar(255);not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Color) TableName() string {
	return "colors"
}

type Size struct {
	SizeID string `gorm:"primaryKey;type:varchar(10)" json:"size_id"`
	Name   string `gorm:"type:varchar(255);not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Size) TableName() string {
	return "sizes"
}

// StockQuantity is the inventory counter for one (product, color, size)
// combination. Stock must never go negative; writers take a row lock
// before decrementing.
type StockQuantity struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID string `gorm:"type:varchar(10);not null;uniqueIndex:idx_stock_cell,priority:1" json:"product_id"`
	ColorID   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_stock_cell,priority:2" json:"color_id"`
	SizeID    string `gorm:"type:varchar(10);not null;uniqueIndex:idx_stock_cell,priority:3" json:"size_id"`
	Stock     int    `gorm:"not null" json:"stock"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StockQuantity) TableName() string {
	return "stock_quantities"
}
