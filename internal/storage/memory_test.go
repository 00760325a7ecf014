package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoconnect/soko-backend/internal/models"
)

func TestSeededCatalogIsStableSorted(t *testing.T) {
	m := NewSeededMemoryStore()

	products, err := m.GetProducts("", "")
	require.NoError(t, err)
	require.Len(t, products, 8)

	// Listing order must be identical across calls; USSD option numbers
	// map to positions
	for i, p := range products {
		if i > 0 {
			assert.Less(t, products[i-1].ProductID, p.ProductID)
		}
	}
	assert.Equal(t, "Coca Cola", products[0].Name)
	assert.Equal(t, "Soap", products[7].Name)
}

func TestGetProductsByCategory(t *testing.T) {
	m := NewSeededMemoryStore()

	drinks, err := m.GetProducts("drinks", "")
	require.NoError(t, err)
	require.Len(t, drinks, 2)
	assert.Equal(t, "Coca Cola", drinks[0].Name)
	assert.Equal(t, "Tea Bags", drinks[1].Name)
}

func TestSearchProductsMatchesNameAndCategory(t *testing.T) {
	m := NewSeededMemoryStore()

	byName, err := m.SearchProducts("rice", "")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "004", byName[0].ProductID)

	byCategory, err := m.SearchProducts("cooking", "")
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	none, err := m.SearchProducts("unobtainium", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetCategoriesDistinctSorted(t *testing.T) {
	m := NewSeededMemoryStore()

	categories, err := m.GetCategories()
	require.NoError(t, err)
	assert.Equal(t, []string{"cooking", "dairy", "drinks", "food", "hygiene"}, categories)
}

func TestDecrementStock(t *testing.T) {
	m := NewSeededMemoryStore()

	require.NoError(t, m.DecrementStock("001", 10))
	p, err := m.GetProduct("001")
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)

	err = m.DecrementStock("001", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")

	assert.Error(t, m.DecrementStock("999", 1))
}

func TestCreateOrderAssignsNumber(t *testing.T) {
	m := NewMemoryStore()

	order, err := m.CreateOrder(&models.Order{OrderID: "MKT123", CustomerPhone: "+255700000009", Total: 4500})
	require.NoError(t, err)
	assert.Equal(t, "ORD-00001", order.OrderNumber)

	_, err = m.CreateOrder(&models.Order{})
	assert.Error(t, err)
}

func TestGetOrdersByPhoneNewestFirstWithLimit(t *testing.T) {
	m := NewMemoryStore()
	phone := "+255700000009"

	for _, id := range []string{"A", "B", "C"} {
		_, err := m.CreateOrder(&models.Order{OrderID: id, CustomerPhone: phone})
		require.NoError(t, err)
	}

	orders, err := m.GetOrdersByPhone(phone, 2)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	none, err := m.GetOrdersByPhone("+255700000000", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWalletAccountRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	phone := "+255700000009"

	_, err := m.GetAccount(phone)
	assert.Error(t, err)

	require.NoError(t, m.SaveAccount(&models.WalletAccount{Phone: phone, Balance: 500}))
	account, err := m.GetAccount(phone)
	require.NoError(t, err)
	assert.Equal(t, int64(500), account.Balance)
	assert.Equal(t, models.DefaultCurrency, account.Currency)
}

func TestTransactionsNewestFirstFiltered(t *testing.T) {
	m := NewMemoryStore()
	a, b, c := "+255700000001", "+255700000002", "+255700000003"

	for _, tx := range []*models.Transaction{
		{FromPhone: a, ToPhone: b, Amount: 100},
		{FromPhone: b, ToPhone: a, Amount: 200},
		{FromPhone: b, ToPhone: c, Amount: 300},
	} {
		_, err := m.CreateTransaction(tx)
		require.NoError(t, err)
	}

	txs, err := m.GetTransactionsByPhone(a, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(200), txs[0].Amount)
	assert.Equal(t, int64(100), txs[1].Amount)

	limited, err := m.GetTransactionsByPhone(b, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
