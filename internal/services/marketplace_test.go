package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoconnect/soko-backend/internal/models"
	"github.com/sokoconnect/soko-backend/internal/storage"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(map[string][]string)}
}

func (r *recordingNotifier) SendSMS(to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[to] = append(r.sent[to], body)
	return nil
}

func (r *recordingNotifier) messages(to string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[to]...)
}

type marketFixture struct {
	store    *storage.MemoryStore
	payments *PaymentService
	notifier *recordingNotifier
	market   *MarketplaceService
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	t.Setenv("AT_USERNAME", "sandbox")
	t.Setenv("PAYMENT_MODE", "sandbox")
	t.Setenv("SANDBOX_AUTO_CONFIRM_DELAY", "10")
	t.Setenv("SANDBOX_SUCCESS_RATE", "1")

	store := storage.NewSeededMemoryStore()
	payments := NewPaymentService(store)
	payments.Register(buyerPhone)
	notifier := newRecordingNotifier()
	return &marketFixture{
		store:    store,
		payments: payments,
		notifier: notifier,
		market:   NewMarketplaceService(store, payments, NewSMSService(notifier)),
	}
}

func TestAddToCartAndMergeLines(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	update := f.market.AddToCart(ctx, buyerPhone, "001", 2)
	require.True(t, update.OK)
	assert.Contains(t, update.Message, "Added 2 bottle(s) of Coca Cola")
	assert.Contains(t, update.Message, "Cart total: 3,000 TZS")

	// Same product merges into one line
	update = f.market.AddToCart(ctx, buyerPhone, "001", 1)
	require.True(t, update.OK)

	cart := f.market.Cart(buyerPhone)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(4500), cart.Total)
}

func TestAddToCartRejectsOverStock(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	update := f.market.AddToCart(ctx, buyerPhone, "004", 100)
	assert.False(t, update.OK)
	assert.Equal(t, "Only 15 bag(s) of Rice 2kg available", update.Message)
	assert.Empty(t, f.market.Cart(buyerPhone).Items)
}

func TestAddToCartMergeRespectsStock(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()

	require.True(t, f.market.AddToCart(ctx, buyerPhone, "004", 10).OK)
	update := f.market.AddToCart(ctx, buyerPhone, "004", 10)
	assert.False(t, update.OK)

	cart := f.market.Cart(buyerPhone)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 10, cart.Items[0].Quantity)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	f := newMarketFixture(t)
	update := f.market.AddToCart(context.Background(), buyerPhone, "999", 1)
	assert.False(t, update.OK)
	assert.Equal(t, "Product not found", update.Message)
}

func TestClearCartItemizes(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	f.market.AddToCart(ctx, buyerPhone, "001", 2)
	f.market.AddToCart(ctx, buyerPhone, "002", 1)

	update := f.market.ClearCart(buyerPhone)
	require.True(t, update.OK)
	assert.Contains(t, update.Message, "Cart cleared! Removed 2 item(s):")
	assert.Contains(t, update.Message, "- 2 bottle(s) Coca Cola (3,000 TZS)")
	assert.Contains(t, update.Message, "Total cleared: 5,000 TZS")
	assert.Empty(t, f.market.Cart(buyerPhone).Items)
}

func TestClearEmptyCart(t *testing.T) {
	f := newMarketFixture(t)
	update := f.market.ClearCart(buyerPhone)
	assert.True(t, update.OK)
	assert.Equal(t, "Cart cleared successfully.", update.Message)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newMarketFixture(t)
	update := f.market.Checkout(context.Background(), buyerPhone)
	assert.False(t, update.OK)
	assert.Equal(t, "Cart is empty", update.Message)
}

func TestCheckoutConfirmsAndSettles(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	f.market.AddToCart(ctx, buyerPhone, "001", 2)

	update := f.market.Checkout(ctx, buyerPhone)
	require.True(t, update.OK)
	assert.Contains(t, update.Message, "Payment request sent to "+buyerPhone)
	assert.Contains(t, update.Message, "3,000 TZS")
	assert.Equal(t, 1, f.market.PendingCount())

	// Sandbox auto-confirm settles the order shortly after; the vendor
	// notification is the last step of settlement
	require.Eventually(t, func() bool {
		return len(f.notifier.messages("+255700000001")) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.market.PendingCount())

	// Wallet debited
	balance, _ := f.payments.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance-3000), balance)

	// Order persisted as completed
	orders, err := f.store.GetOrdersByPhone(buyerPhone, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusCompleted, orders[0].Status)
	assert.Equal(t, int64(3000), orders[0].Total)
	require.Len(t, orders[0].Items, 1)

	// Stock decremented and cart emptied
	product, err := f.store.GetProduct("001")
	require.NoError(t, err)
	assert.Equal(t, 48, product.Stock)
	assert.Empty(t, f.market.Cart(buyerPhone).Items)

	// Buyer gets the canned confirmation, vendor the order summary
	require.NotEmpty(t, f.notifier.messages(buyerPhone))
	buyerMsg := f.notifier.messages(buyerPhone)[0]
	assert.Contains(t, buyerMsg, "Order confirmed!")
	assert.Contains(t, buyerMsg, "Total: 3,000 TZS")
	assert.Contains(t, buyerMsg, "Order ID: "+orders[0].OrderNumber)

	vendorMsgs := f.notifier.messages("+255700000001")
	require.Len(t, vendorMsgs, 1)
	assert.Contains(t, vendorMsgs[0], "New Order Received!")
	assert.Contains(t, vendorMsgs[0], "2 bottle(s) Coca Cola")
}

func TestCheckoutDeclinedKeepsCart(t *testing.T) {
	f := newMarketFixture(t)
	t.Setenv("SANDBOX_SUCCESS_RATE", "0")
	market := NewMarketplaceService(f.store, f.payments, NewSMSService(f.notifier))
	ctx := context.Background()
	market.AddToCart(ctx, buyerPhone, "002", 1)

	require.True(t, market.Checkout(ctx, buyerPhone).OK)
	require.Eventually(t, func() bool {
		return market.PendingCount() == 0
	}, 5*time.Second, 10*time.Millisecond)

	// No debit, cart intact, buyer told
	balance, _ := f.payments.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance), balance)
	assert.Len(t, market.Cart(buyerPhone).Items, 1)

	require.Eventually(t, func() bool {
		msgs := f.notifier.messages(buyerPhone)
		return len(msgs) == 1 && strings.Contains(msgs[0], "Payment cancelled")
	}, time.Second, 10*time.Millisecond)
}

func TestExpirePendingCancelsConfirmation(t *testing.T) {
	f := newMarketFixture(t)
	t.Setenv("SANDBOX_AUTO_CONFIRM_DELAY", "60000")
	market := NewMarketplaceService(f.store, f.payments, NewSMSService(f.notifier))
	ctx := context.Background()
	market.AddToCart(ctx, buyerPhone, "001", 1)

	require.True(t, market.Checkout(ctx, buyerPhone).OK)
	require.Equal(t, 1, market.PendingCount())

	expired := market.ExpirePending(0)
	assert.Equal(t, 1, expired)
	assert.Equal(t, 0, market.PendingCount())

	msgs := f.notifier.messages(buyerPhone)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "expired")

	// Nothing was ever debited
	balance, _ := f.payments.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance), balance)
}

func TestOrderHistoryOnlyCompleted(t *testing.T) {
	f := newMarketFixture(t)
	_, err := f.store.CreateOrder(&models.Order{OrderID: "MKT1", CustomerPhone: buyerPhone, Status: models.OrderStatusCompleted, Total: 1500})
	require.NoError(t, err)
	_, err = f.store.CreateOrder(&models.Order{OrderID: "MKT2", CustomerPhone: buyerPhone, Status: models.OrderStatusExpired, Total: 900})
	require.NoError(t, err)

	orders := f.market.OrderHistory(buyerPhone, 5)
	require.Len(t, orders, 1)
	assert.Equal(t, "MKT1", orders[0].OrderID)
}
