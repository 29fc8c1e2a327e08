package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/vivushop/pkg/config"
	"github.com/example/vivushop/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MySQLStore struct {
	db *gorm.DB
}

func NewMySQL(cfg *config.MySQLConfig) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Color{},
		&models.Size{},
		&models.StockQuantity{},
		&models.Order{},
		&models.OrderLine{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Transact(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MySQLStore{db: tx})
	})
}

func (s *MySQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (s *MySQLStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *MySQLStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("product_id = ?", id).First(&product).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &product, nil
}

func (s *MySQLStore) GetColor(ctx context.Context, id string) (*models.Color, error) {
	var color models.Color
	if err := s.db.WithContext(ctx).Where("color_id = ?", id).First(&color).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &color, nil
}

func (s *MySQLStore) GetSize(ctx context.Context, id string) (*models.Size, error) {
	var size models.Size
	if err := s.db.WithContext(ctx).Where("size_id = ?", id).First(&size).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &size, nil
}

// StockForUpdate issues SELECT ... FOR UPDATE so two concurrent
// reservations on the same cell cannot both read the old quantity.
func (s *MySQLStore) StockForUpdate(ctx context.Context, productID, colorID, sizeID string) (*models.StockQuantity, error) {
	var cell models.StockQuantity
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND color_id = ? AND size_id = ?", productID, colorID, sizeID).
		First(&cell).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &cell, nil
}

func (s *MySQLStore) SaveStock(ctx context.Context, cell *models.StockQuantity) error {
	return s.db.WithContext(ctx).Save(cell).Error
}

func (s *MySQLStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *MySQLStore) SaveOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Save(order).Error
}

func (s *MySQLStore) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Order{}).Error
}

func (s *MySQLStore) CreateOrderLine(ctx context.Context, line *models.OrderLine) error {
	return s.db.WithContext(ctx).Create(line).Error
}

func (s *MySQLStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &order, nil
}

func (s *MySQLStore) LinesByOrder(ctx context.Context, orderID string) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *MySQLStore) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
