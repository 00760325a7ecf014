package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusExpired        = "expired"
)

// Order is a confirmed (or pending-payment) marketplace purchase
type Order struct {
	gorm.Model

	OrderID       string      `json:"order_id" gorm:"uniqueIndex"`
	OrderNumber   string      `json:"order_number"`
	CustomerPhone string      `json:"customer_phone" gorm:"index"`
	CustomerName  string      `json:"customer_name"`
	VendorID      string      `json:"vendor_id" gorm:"index"`
	VendorPhone   string      `json:"vendor_phone"`
	Total         int64       `json:"total"`
	Status        string      `json:"status" gorm:"index"`
	TransactionID string      `json:"transaction_id"`
	ConfirmedAt   *time.Time  `json:"confirmed_at"`
	Items         []OrderItem `json:"items" gorm:"foreignKey:OrderRef;references:OrderID"`
}

// OrderItem is a single line on an order
type OrderItem struct {
	gorm.Model

	OrderRef  string `json:"order_ref" gorm:"index"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// CartItem is one line in a user's (in-memory) shopping cart
type CartItem struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Unit        string `json:"unit"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
	VendorID    string `json:"vendor_id"`
	VendorPhone string `json:"vendor_phone"`
}

// Cart is the full cart for one phone number
type Cart struct {
	Items []CartItem `json:"items"`
	Total int64      `json:"total"`
}

// Recalculate refreshes subtotals and the cart total from quantities
func (c *Cart) Recalculate() {
	c.Total = 0
	for i := range c.Items {
		c.Items[i].Subtotal = int64(c.Items[i].Quantity) * c.Items[i].Price
		c.Total += c.Items[i].Subtotal
	}
}
