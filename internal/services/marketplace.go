package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sokoconnect/soko-backend/internal/models"
	"github.com/sokoconnect/soko-backend/internal/storage"
	"github.com/sokoconnect/soko-backend/internal/ussd"
	"github.com/sokoconnect/soko-backend/internal/utils"
)

// Notifier delivers out-of-band confirmations (SMS today). Payment outcomes
// always travel through here, never through the USSD response that started
// the checkout.
type Notifier interface {
	SendSMS(to, body string) error
}

// OrderNotifier adds the canned order-confirmation message on top of raw
// delivery. The SMSService implements it; the marketplace uses it so the
// buyer confirmation copy lives in one place.
type OrderNotifier interface {
	Notifier
	SendOrderConfirmation(phone string, order *models.Order, loc ussd.Locale) error
}

// pendingOrder is a checkout awaiting push-payment confirmation. Its cancel
// function tears down the sandbox auto-confirm task if the order expires
// first.
type pendingOrder struct {
	order     *models.Order
	requestID string
	createdAt time.Time
	cancel    context.CancelFunc
}

// MarketplaceService is the cart/checkout/order collaborator. Carts are
// in-memory and phone-keyed; orders and stock live in the Store.
type MarketplaceService struct {
	store    storage.Store
	payments *PaymentService
	notifier OrderNotifier

	cartMu sync.RWMutex
	carts  map[string]*models.Cart

	pendingMu sync.Mutex
	pending   map[string]*pendingOrder

	sandbox      bool
	confirmDelay time.Duration
	successRate  float64
}

// NewMarketplaceService wires the marketplace to storage, the wallet and the
// notification channel. Sandbox push payments auto-confirm after
// SANDBOX_AUTO_CONFIRM_DELAY (ms) with SANDBOX_SUCCESS_RATE probability.
func NewMarketplaceService(store storage.Store, payments *PaymentService, notifier OrderNotifier) *MarketplaceService {
	mode := os.Getenv("PAYMENT_MODE")
	if mode == "" {
		mode = "sandbox"
	}

	confirmDelay := 3 * time.Second
	if v := os.Getenv("SANDBOX_AUTO_CONFIRM_DELAY"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			confirmDelay = time.Duration(ms) * time.Millisecond
		}
	}

	successRate := 0.9
	if v := os.Getenv("SANDBOX_SUCCESS_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			successRate = f
		}
	}

	return &MarketplaceService{
		store:        store,
		payments:     payments,
		notifier:     notifier,
		carts:        make(map[string]*models.Cart),
		pending:      make(map[string]*pendingOrder),
		sandbox:      mode == "sandbox",
		confirmDelay: confirmDelay,
		successRate:  successRate,
	}
}

// Products returns the full catalog
func (m *MarketplaceService) Products(ctx context.Context) ([]*models.Product, error) {
	return m.store.GetProducts("", "")
}

// ProductsByCategory returns the catalog filtered to one category
func (m *MarketplaceService) ProductsByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	return m.store.GetProducts(category, "")
}

// Search matches products by name or category
func (m *MarketplaceService) Search(ctx context.Context, query string) ([]*models.Product, error) {
	return m.store.SearchProducts(query, "")
}

// Categories lists the distinct catalog categories
func (m *MarketplaceService) Categories(ctx context.Context) ([]string, error) {
	return m.store.GetCategories()
}

// Cart returns a copy of the phone's cart; an absent cart is just empty
func (m *MarketplaceService) Cart(phone string) models.Cart {
	m.cartMu.RLock()
	defer m.cartMu.RUnlock()

	cart, exists := m.carts[phone]
	if !exists {
		return models.Cart{}
	}
	out := models.Cart{Total: cart.Total, Items: make([]models.CartItem, len(cart.Items))}
	copy(out.Items, cart.Items)
	return out
}

// AddToCart validates stock and merges the line into the cart. A quantity
// the stock cannot cover leaves the cart untouched and reports what is left.
func (m *MarketplaceService) AddToCart(ctx context.Context, phone, productID string, quantity int) ussd.CartUpdate {
	product, err := m.store.GetProduct(productID)
	if err != nil {
		return ussd.CartUpdate{OK: false, Message: "Product not found"}
	}
	if product.Stock < quantity {
		return ussd.CartUpdate{OK: false, Message: stockShortMessage(product)}
	}

	m.cartMu.Lock()
	defer m.cartMu.Unlock()

	cart, exists := m.carts[phone]
	if !exists {
		cart = &models.Cart{}
		m.carts[phone] = cart
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			newQuantity := cart.Items[i].Quantity + quantity
			if product.Stock < newQuantity {
				return ussd.CartUpdate{OK: false, Message: stockShortMessage(product)}
			}
			cart.Items[i].Quantity = newQuantity
			merged = true
			break
		}
	}
	if !merged {
		vendorPhone := ""
		if vendor, err := m.store.GetVendor(product.VendorID); err == nil {
			vendorPhone = vendor.Phone
		}
		cart.Items = append(cart.Items, models.CartItem{
			ProductID:   productID,
			Name:        product.Name,
			Price:       product.Price,
			Unit:        product.Unit,
			Quantity:    quantity,
			VendorID:    product.VendorID,
			VendorPhone: vendorPhone,
		})
	}
	cart.Recalculate()

	return ussd.CartUpdate{
		OK: true,
		Message: fmt.Sprintf("Added %d %s(s) of %s to cart. Cart total: %s TZS",
			quantity, product.Unit, product.Name, ussd.FormatAmount(cart.Total)),
	}
}

func stockShortMessage(p *models.Product) string {
	return fmt.Sprintf("Only %d %s(s) of %s available", p.Stock, p.Unit, p.Name)
}

// ClearCart empties the cart and itemizes what was removed
func (m *MarketplaceService) ClearCart(phone string) ussd.CartUpdate {
	m.cartMu.Lock()
	defer m.cartMu.Unlock()

	cart, exists := m.carts[phone]
	if !exists || len(cart.Items) == 0 {
		delete(m.carts, phone)
		return ussd.CartUpdate{OK: true, Message: "Cart cleared successfully."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cart cleared! Removed %d item(s):\n", len(cart.Items))
	for _, item := range cart.Items {
		fmt.Fprintf(&sb, "- %d %s(s) %s (%s TZS)\n", item.Quantity, item.Unit, item.Name, ussd.FormatAmount(item.Subtotal))
	}
	fmt.Fprintf(&sb, "Total cleared: %s TZS", ussd.FormatAmount(cart.Total))

	delete(m.carts, phone)
	return ussd.CartUpdate{OK: true, Message: sb.String()}
}

// Checkout re-validates stock, registers a pending order and fires the push
// payment request. The USSD reply only acknowledges the request; the outcome
// arrives later by SMS.
func (m *MarketplaceService) Checkout(ctx context.Context, phone string) ussd.CartUpdate {
	cart := m.Cart(phone)
	if len(cart.Items) == 0 {
		return ussd.CartUpdate{OK: false, Message: "Cart is empty"}
	}

	// The cart snapshot may be stale against live stock
	for _, item := range cart.Items {
		product, err := m.store.GetProduct(item.ProductID)
		if err != nil || product.Stock < item.Quantity {
			available := 0
			if product != nil {
				available = product.Stock
			}
			return ussd.CartUpdate{OK: false, Message: fmt.Sprintf("%s out of stock. Only %d available", item.Name, available)}
		}
	}

	orderID := utils.GenerateRef("MKT")
	order := &models.Order{
		OrderID:       orderID,
		CustomerPhone: phone,
		CustomerName:  phone,
		VendorID:      cart.Items[0].VendorID,
		VendorPhone:   cart.Items[0].VendorPhone,
		Total:         cart.Total,
		Status:        models.OrderStatusPendingPayment,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderRef:  orderID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Subtotal:  item.Subtotal,
		})
	}

	requestID := "PUSH" + uuid.NewString()
	confirmCtx, cancel := context.WithCancel(context.Background())

	m.pendingMu.Lock()
	m.pending[orderID] = &pendingOrder{
		order:     order,
		requestID: requestID,
		createdAt: time.Now(),
		cancel:    cancel,
	}
	m.pendingMu.Unlock()

	if m.sandbox {
		willSucceed := rand.Float64() < m.successRate
		log.Printf("[Marketplace] SANDBOX push %s for order %s: will %s after %v",
			requestID, orderID, outcomeWord(willSucceed), m.confirmDelay)
		go m.autoConfirm(confirmCtx, orderID, willSucceed)
	} else {
		// Live gateways callback into ConfirmPayment via the payment webhook
		log.Printf("[Marketplace] LIVE push %s for order %s awaiting gateway callback", requestID, orderID)
	}

	return ussd.CartUpdate{
		OK: true,
		Message: fmt.Sprintf("Payment request sent to %s. Please check your phone and enter PIN to confirm payment of %s TZS",
			phone, ussd.FormatAmount(cart.Total)),
	}
}

func outcomeWord(ok bool) string {
	if ok {
		return "succeed"
	}
	return "fail"
}

// autoConfirm simulates the mobile-money push confirmation after a delay.
// Cancelling the context (order expired) suppresses it.
func (m *MarketplaceService) autoConfirm(ctx context.Context, orderID string, confirmed bool) {
	timer := time.NewTimer(m.confirmDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		m.ConfirmPayment(orderID, confirmed)
	}
}

// ConfirmPayment settles a pending order: debit the wallet, persist the
// order, decrement stock, clear the cart and notify both parties. A declined
// payment keeps the cart so the user can retry.
func (m *MarketplaceService) ConfirmPayment(orderID string, confirmed bool) {
	m.pendingMu.Lock()
	pending, exists := m.pending[orderID]
	if exists {
		delete(m.pending, orderID)
	}
	m.pendingMu.Unlock()

	if !exists {
		log.Printf("[Marketplace] Pending order %s not found", orderID)
		return
	}
	pending.cancel()

	order := pending.order
	phone := order.CustomerPhone

	if !confirmed {
		log.Printf("[Marketplace] Payment cancelled for order %s", orderID)
		m.notify(phone, fmt.Sprintf("Payment cancelled for order %s. Items remain in cart.", orderID))
		return
	}

	newBalance, err := m.payments.DeductMoney(phone, order.Total)
	if err != nil {
		log.Printf("❌ [Marketplace] Failed to deduct for order %s: %v", orderID, err)
		m.notify(phone, fmt.Sprintf("Payment failed: %v", err))
		return
	}

	now := time.Now()
	order.Status = models.OrderStatusCompleted
	order.ConfirmedAt = &now
	order.TransactionID = utils.GenerateRef("TX")
	if _, err := m.store.CreateOrder(order); err != nil {
		log.Printf("❌ [Marketplace] Failed to create order %s: %v", orderID, err)
		m.payments.AddMoney(phone, order.Total)
		m.notify(phone, "Order creation failed. Money refunded.")
		return
	}

	for _, item := range order.Items {
		if err := m.store.DecrementStock(item.ProductID, item.Quantity); err != nil {
			log.Printf("❌ [Marketplace] Failed to update stock for %s: %v", item.Name, err)
		}
	}

	m.cartMu.Lock()
	delete(m.carts, phone)
	m.cartMu.Unlock()

	log.Printf("[Marketplace] Payment confirmed for order %s (%s), new balance %s TZS",
		orderID, order.OrderNumber, ussd.FormatAmount(newBalance))

	if m.notifier == nil {
		log.Printf("📤 [Marketplace] Confirmation (no sender configured) for order %s", order.OrderNumber)
	} else if err := m.notifier.SendOrderConfirmation(phone, order, ussd.DefaultLocale); err != nil {
		log.Printf("❌ [Marketplace] Failed to confirm order %s to %s: %v", order.OrderNumber, phone, err)
	}

	if order.VendorPhone != "" {
		var lines []string
		for _, item := range order.Items {
			lines = append(lines, fmt.Sprintf("%d %s(s) %s", item.Quantity, item.Unit, item.Name))
		}
		m.notify(order.VendorPhone, fmt.Sprintf(
			"New Order Received!\nOrder: %s\nCustomer: %s\nAmount: %s TZS\nItems: %s",
			order.OrderNumber, phone, ussd.FormatAmount(order.Total), strings.Join(lines, ", ")))
	}
}

// ExpirePending cancels pending orders older than maxAge and tells the buyer.
// Returns how many were expired; the janitor calls this periodically.
func (m *MarketplaceService) ExpirePending(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.pendingMu.Lock()
	var expired []*pendingOrder
	for orderID, pending := range m.pending {
		if pending.createdAt.Before(cutoff) {
			delete(m.pending, orderID)
			expired = append(expired, pending)
		}
	}
	m.pendingMu.Unlock()

	for _, pending := range expired {
		pending.cancel()
		log.Printf("[Marketplace] Expired pending order %s", pending.order.OrderID)
		m.notify(pending.order.CustomerPhone,
			fmt.Sprintf("Payment request for order %s expired. Items remain in cart.", pending.order.OrderID))
	}
	return len(expired)
}

// PendingCount reports how many orders await payment confirmation
func (m *MarketplaceService) PendingCount() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

// OrderHistory returns the phone's completed orders, newest first
func (m *MarketplaceService) OrderHistory(phone string, limit int) []*models.Order {
	orders, err := m.store.GetOrdersByPhone(phone, 0)
	if err != nil {
		log.Printf("❌ [Marketplace] Failed to fetch orders for %s: %v", phone, err)
		return nil
	}
	var completed []*models.Order
	for _, o := range orders {
		if o.Status == models.OrderStatusCompleted {
			completed = append(completed, o)
			if limit > 0 && len(completed) >= limit {
				break
			}
		}
	}
	return completed
}

func (m *MarketplaceService) notify(phone, body string) {
	if m.notifier == nil {
		log.Printf("📤 [Marketplace] Notification (no sender configured) to %s: %s", phone, body)
		return
	}
	if err := m.notifier.SendSMS(phone, body); err != nil {
		log.Printf("❌ [Marketplace] Failed to notify %s: %v", phone, err)
	}
}
