package storage

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sokoconnect/soko-backend/internal/models"
)

// DatabaseStore implements Store on top of GORM/PostgreSQL
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Product operations

func (s *DatabaseStore) GetProducts(category, region string) ([]*models.Product, error) {
	var products []*models.Product
	q := s.db.Order("product_id")
	if category != "" {
		q = q.Where("category = ?", strings.ToLower(category))
	}
	if region != "" {
		q = q.Where("region = ?", strings.ToLower(region))
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

func (s *DatabaseStore) SearchProducts(query, region string) ([]*models.Product, error) {
	var products []*models.Product
	pattern := "%" + strings.ToLower(query) + "%"
	q := s.db.Order("product_id").
		Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern)
	if region != "" {
		q = q.Where("region = ?", strings.ToLower(region))
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *DatabaseStore) GetProduct(productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.Where("product_id = ?", productID).First(&product).Error; err != nil {
		return nil, fmt.Errorf("product not found")
	}
	return &product, nil
}

func (s *DatabaseStore) GetCategories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.Product{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (s *DatabaseStore) DecrementStock(productID string, quantity int) error {
	result := s.db.Model(&models.Product{}).
		Where("product_id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("insufficient stock")
	}
	return nil
}

// Vendor operations

func (s *DatabaseStore) CreateVendor(vendor *models.Vendor) (*models.Vendor, error) {
	if err := s.db.Create(vendor).Error; err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return vendor, nil
}

func (s *DatabaseStore) GetVendor(vendorID string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := s.db.Where("vendor_id = ?", vendorID).First(&vendor).Error; err != nil {
		return nil, fmt.Errorf("vendor not found")
	}
	return &vendor, nil
}

func (s *DatabaseStore) GetVendors(region string) ([]*models.Vendor, error) {
	var vendors []*models.Vendor
	q := s.db
	if region != "" {
		q = q.Where("region = ?", strings.ToLower(region))
	}
	if err := q.Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch vendors: %w", err)
	}
	return vendors, nil
}

// Order operations

func (s *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	if order.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if order.OrderNumber == "" {
			var count int64
			if err := tx.Model(&models.Order{}).Count(&count).Error; err != nil {
				return err
			}
			order.OrderNumber = fmt.Sprintf("ORD-%05d", count+1)
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (s *DatabaseStore) GetOrder(orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, fmt.Errorf("order not found")
	}
	return &order, nil
}

func (s *DatabaseStore) GetOrdersByPhone(phone string, limit int) ([]*models.Order, error) {
	var orders []*models.Order
	q := s.db.Preload("Items").
		Where("customer_phone = ?", phone).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (s *DatabaseStore) UpdateOrderStatus(orderID, status string) error {
	result := s.db.Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order not found")
	}
	return nil
}

// Wallet operations

func (s *DatabaseStore) GetAccount(phone string) (*models.WalletAccount, error) {
	var account models.WalletAccount
	if err := s.db.Where("phone = ?", phone).First(&account).Error; err != nil {
		return nil, fmt.Errorf("account not found")
	}
	return &account, nil
}

func (s *DatabaseStore) SaveAccount(account *models.WalletAccount) error {
	if account.Currency == "" {
		account.Currency = models.DefaultCurrency
	}
	if err := s.db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Transaction operations

func (s *DatabaseStore) CreateTransaction(tx *models.Transaction) (*models.Transaction, error) {
	if err := s.db.Create(tx).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (s *DatabaseStore) GetTransactionsByPhone(phone string, limit int) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	q := s.db.Where("from_phone = ? OR to_phone = ?", phone, phone).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return txs, nil
}
