package ussd

import "github.com/sokoconnect/soko-backend/internal/models"

// State is the closed set of screens a session can be on. Each variant
// carries the data that screen needs, so an impossible combination (say, a
// send-money amount prompt without a recipient) cannot be constructed.
// The unexported marker method keeps the set closed to this package.
type State interface {
	state()
	Name() string
}

// LanguageSelect is the entry screen shown on first contact
type LanguageSelect struct{}

// Main is the top-level menu
type Main struct{}

// Shop is the shop submenu (browse / search / categories)
type Shop struct{}

// CartView is the cart screen; option numbers are positional over the items
type CartView struct{}

// Wallet is the wallet submenu
type Wallet struct{}

// ProductList is a paginated listing. The product snapshot is cached for the
// duration of the listing so page navigation never re-fetches; leaving the
// listing drops the snapshot.
type ProductList struct {
	Products []*models.Product
	Page     int
}

// AfterAddToCart is the continue/view-cart/checkout prompt shown after a
// successful add
type AfterAddToCart struct{}

// SearchPrompt awaits a free-text product query
type SearchPrompt struct{}

// CategoryList awaits a numeric pick from the fetched category names
type CategoryList struct {
	Categories []string
}

// SendMoneyRecipient awaits the recipient phone number
type SendMoneyRecipient struct{}

// SendMoneyAmount awaits the transfer amount for an already-captured recipient
type SendMoneyAmount struct {
	Recipient string
}

// AddMoneyPrompt awaits a top-up amount
type AddMoneyPrompt struct{}

func (LanguageSelect) state()     {}
func (Main) state()               {}
func (Shop) state()               {}
func (CartView) state()           {}
func (Wallet) state()             {}
func (ProductList) state()        {}
func (AfterAddToCart) state()     {}
func (SearchPrompt) state()       {}
func (CategoryList) state()       {}
func (SendMoneyRecipient) state() {}
func (SendMoneyAmount) state()    {}
func (AddMoneyPrompt) state()     {}

func (LanguageSelect) Name() string     { return "language_select" }
func (Main) Name() string               { return "main" }
func (Shop) Name() string               { return "shop" }
func (CartView) Name() string           { return "cart" }
func (Wallet) Name() string             { return "wallet" }
func (ProductList) Name() string        { return "product_list" }
func (AfterAddToCart) Name() string     { return "after_add_to_cart" }
func (SearchPrompt) Name() string       { return "search_prompt" }
func (CategoryList) Name() string       { return "category_list" }
func (SendMoneyRecipient) Name() string { return "send_money_recipient" }
func (SendMoneyAmount) Name() string    { return "send_money_amount" }
func (AddMoneyPrompt) Name() string     { return "add_money" }
