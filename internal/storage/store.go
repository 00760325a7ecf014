package storage

import (
	"sync"

	"github.com/sokoconnect/soko-backend/internal/models"
)

var (
	storeInstance Store
	storeMu       sync.Mutex
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	storeMu.Lock()
	defer storeMu.Unlock()
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Product catalog operations
	GetProducts(category, region string) ([]*models.Product, error)
	SearchProducts(query, region string) ([]*models.Product, error)
	GetProduct(productID string) (*models.Product, error)
	GetCategories() ([]string, error)
	DecrementStock(productID string, quantity int) error

	// Vendor operations
	CreateVendor(vendor *models.Vendor) (*models.Vendor, error)
	GetVendor(vendorID string) (*models.Vendor, error)
	GetVendors(region string) ([]*models.Vendor, error)

	// Order operations
	CreateOrder(order *models.Order) (*models.Order, error)
	GetOrder(orderID string) (*models.Order, error)
	GetOrdersByPhone(phone string, limit int) ([]*models.Order, error)
	UpdateOrderStatus(orderID, status string) error

	// Wallet operations
	GetAccount(phone string) (*models.WalletAccount, error)
	SaveAccount(account *models.WalletAccount) error

	// Transaction operations
	CreateTransaction(tx *models.Transaction) (*models.Transaction, error)
	GetTransactionsByPhone(phone string, limit int) ([]*models.Transaction, error)
}
