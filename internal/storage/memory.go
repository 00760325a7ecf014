package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sokoconnect/soko-backend/internal/models"
)

// MemoryStore holds all data in memory for development and tests
type MemoryStore struct {
	products     map[string]*models.Product
	vendors      map[string]*models.Vendor
	orders       map[string]*models.Order
	accounts     map[string]*models.WalletAccount
	transactions []*models.Transaction

	// Mutexes for thread safety
	productMu sync.RWMutex
	vendorMu  sync.RWMutex
	orderMu   sync.RWMutex
	walletMu  sync.RWMutex
	txMu      sync.RWMutex

	txCounter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*models.Product),
		vendors:  make(map[string]*models.Vendor),
		orders:   make(map[string]*models.Order),
		accounts: make(map[string]*models.WalletAccount),
	}
}

// NewSeededMemoryStore creates a memory store pre-loaded with the demo catalog
func NewSeededMemoryStore() *MemoryStore {
	m := NewMemoryStore()
	m.seedCatalog()
	return m
}

func (m *MemoryStore) seedCatalog() {
	vendor := &models.Vendor{
		VendorID: "VND001",
		Name:     "Mama Ntilie Shop",
		Phone:    "+255700000001",
		Region:   "dar-es-salaam",
		Verified: true,
	}
	m.vendors[vendor.VendorID] = vendor

	seed := []*models.Product{
		{ProductID: "001", Name: "Coca Cola", Price: 1500, Unit: "bottle", Stock: 50, Category: "drinks"},
		{ProductID: "002", Name: "Bread", Price: 2000, Unit: "loaf", Stock: 30, Category: "food"},
		{ProductID: "003", Name: "Milk 1L", Price: 3000, Unit: "carton", Stock: 20, Category: "dairy"},
		{ProductID: "004", Name: "Rice 2kg", Price: 8000, Unit: "bag", Stock: 15, Category: "food"},
		{ProductID: "005", Name: "Cooking Oil", Price: 5500, Unit: "bottle", Stock: 25, Category: "cooking"},
		{ProductID: "006", Name: "Sugar 1kg", Price: 2500, Unit: "bag", Stock: 40, Category: "cooking"},
		{ProductID: "007", Name: "Tea Bags", Price: 1800, Unit: "box", Stock: 35, Category: "drinks"},
		{ProductID: "008", Name: "Soap", Price: 1200, Unit: "bar", Stock: 60, Category: "hygiene"},
	}
	for _, p := range seed {
		p.VendorID = vendor.VendorID
		p.Region = vendor.Region
		m.products[p.ProductID] = p
	}
}

// Product operations

func (m *MemoryStore) GetProducts(category, region string) ([]*models.Product, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	search := &models.ProductSearch{Category: category, Region: region}
	var results []*models.Product
	for _, p := range m.products {
		if search.Matches(p) {
			results = append(results, p)
		}
	}
	sortProducts(results)
	return results, nil
}

func (m *MemoryStore) SearchProducts(query, region string) ([]*models.Product, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	search := &models.ProductSearch{Query: query, Region: region}
	var results []*models.Product
	for _, p := range m.products {
		if search.Matches(p) {
			results = append(results, p)
		}
	}
	sortProducts(results)
	return results, nil
}

func (m *MemoryStore) GetProduct(productID string) (*models.Product, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	product, exists := m.products[productID]
	if !exists {
		return nil, fmt.Errorf("product not found")
	}
	return product, nil
}

func (m *MemoryStore) GetCategories() ([]string, error) {
	m.productMu.RLock()
	defer m.productMu.RUnlock()

	seen := make(map[string]bool)
	var categories []string
	for _, p := range m.products {
		c := strings.ToLower(p.Category)
		if c != "" && !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *MemoryStore) DecrementStock(productID string, quantity int) error {
	m.productMu.Lock()
	defer m.productMu.Unlock()

	product, exists := m.products[productID]
	if !exists {
		return fmt.Errorf("product not found")
	}
	if product.Stock < quantity {
		return fmt.Errorf("insufficient stock: %d available", product.Stock)
	}
	product.Stock -= quantity
	return nil
}

// sortProducts keeps listing order stable across requests, which matters for
// USSD pagination where option numbers map to positions
func sortProducts(products []*models.Product) {
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductID < products[j].ProductID
	})
}

// Vendor operations

func (m *MemoryStore) CreateVendor(vendor *models.Vendor) (*models.Vendor, error) {
	m.vendorMu.Lock()
	defer m.vendorMu.Unlock()

	if vendor.VendorID == "" {
		vendor.VendorID = fmt.Sprintf("VND%03d", len(m.vendors)+1)
	}
	vendor.CreatedAt = time.Now()
	m.vendors[vendor.VendorID] = vendor
	return vendor, nil
}

func (m *MemoryStore) GetVendor(vendorID string) (*models.Vendor, error) {
	m.vendorMu.RLock()
	defer m.vendorMu.RUnlock()

	vendor, exists := m.vendors[vendorID]
	if !exists {
		return nil, fmt.Errorf("vendor not found")
	}
	return vendor, nil
}

func (m *MemoryStore) GetVendors(region string) ([]*models.Vendor, error) {
	m.vendorMu.RLock()
	defer m.vendorMu.RUnlock()

	var vendors []*models.Vendor
	for _, v := range m.vendors {
		if region == "" || strings.EqualFold(v.Region, region) {
			vendors = append(vendors, v)
		}
	}
	return vendors, nil
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if order.OrderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if order.OrderNumber == "" {
		order.OrderNumber = fmt.Sprintf("ORD-%05d", len(m.orders)+1)
	}
	order.CreatedAt = time.Now()
	m.orders[order.OrderID] = order
	return order, nil
}

func (m *MemoryStore) GetOrder(orderID string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, fmt.Errorf("order not found")
	}
	return order, nil
}

func (m *MemoryStore) GetOrdersByPhone(phone string, limit int) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if o.CustomerPhone == phone {
			orders = append(orders, o)
		}
	}
	// Newest first
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatus(orderID, status string) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return fmt.Errorf("order not found")
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

// Wallet operations

func (m *MemoryStore) GetAccount(phone string) (*models.WalletAccount, error) {
	m.walletMu.RLock()
	defer m.walletMu.RUnlock()

	account, exists := m.accounts[phone]
	if !exists {
		return nil, fmt.Errorf("account not found")
	}
	return account, nil
}

func (m *MemoryStore) SaveAccount(account *models.WalletAccount) error {
	m.walletMu.Lock()
	defer m.walletMu.Unlock()

	if account.Currency == "" {
		account.Currency = models.DefaultCurrency
	}
	m.accounts[account.Phone] = account
	return nil
}

// Transaction operations

func (m *MemoryStore) CreateTransaction(tx *models.Transaction) (*models.Transaction, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.txCounter++
	if tx.TransactionID == "" {
		tx.TransactionID = fmt.Sprintf("TX%05d", m.txCounter)
	}
	tx.CreatedAt = time.Now()
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

func (m *MemoryStore) GetTransactionsByPhone(phone string, limit int) ([]*models.Transaction, error) {
	m.txMu.RLock()
	defer m.txMu.RUnlock()

	var results []*models.Transaction
	// Walk newest first
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if tx.FromPhone == phone || tx.ToPhone == phone {
			results = append(results, tx)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}
