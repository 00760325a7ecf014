package ussd

import (
	"context"

	"github.com/sokoconnect/soko-backend/internal/models"
)

// The router drives the marketplace, wallet and voice collaborators through
// these narrow interfaces. Their behavior is assumed correct; every failure
// they report is turned into a user-facing message, never propagated.

// CartUpdate is the outcome of a cart or checkout operation, already phrased
// for the end user
type CartUpdate struct {
	OK      bool
	Message string
}

// Marketplace is the product/cart/order collaborator
type Marketplace interface {
	Products(ctx context.Context) ([]*models.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]*models.Product, error)
	Search(ctx context.Context, query string) ([]*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Cart(phone string) models.Cart
	AddToCart(ctx context.Context, phone, productID string, quantity int) CartUpdate
	ClearCart(phone string) CartUpdate
	Checkout(ctx context.Context, phone string) CartUpdate
	OrderHistory(phone string, limit int) []*models.Order
}

// TransferResult is the outcome of a wallet transfer, phrased for the user
type TransferResult struct {
	OK      bool
	Message string
}

// Payments is the wallet collaborator
type Payments interface {
	Register(phone string)
	Balance(phone string) (amount int64, currency string)
	Transfer(ctx context.Context, from, to string, amount int64) TransferResult
	AddMoney(phone string, amount int64) (newBalance int64)
	Transactions(phone string, limit int) []*models.Transaction
}

// Caller initiates the outbound voice-shopping call; the call itself happens
// outside the USSD request cycle
type Caller interface {
	StartShoppingCall(ctx context.Context, phone string, loc Locale) (message string, err error)
}
