package models

import (
	"gorm.io/gorm"
)

// DefaultCurrency is the only currency the wallet deals in
const DefaultCurrency = "TZS"

// WalletAccount is a user's prepaid balance, keyed by phone number
type WalletAccount struct {
	gorm.Model

	Phone    string `json:"phone" gorm:"uniqueIndex"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency" gorm:"default:TZS"`
}

// Transaction statuses
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is a completed wallet movement between two phone numbers
type Transaction struct {
	gorm.Model

	TransactionID string `json:"transaction_id" gorm:"uniqueIndex"`
	FromPhone     string `json:"from_phone" gorm:"index"`
	ToPhone       string `json:"to_phone" gorm:"index"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	Status        string `json:"status"`
}
