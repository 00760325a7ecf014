package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"sync"

	"github.com/sokoconnect/soko-backend/internal/models"
	"github.com/sokoconnect/soko-backend/internal/storage"
	"github.com/sokoconnect/soko-backend/internal/ussd"
	"github.com/sokoconnect/soko-backend/internal/utils"
)

// SandboxStartingBalance is granted to newly enrolled sandbox users so the
// demo wallet has something to spend
const SandboxStartingBalance = 10000

var livePhonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

var (
	paymentServiceInstance *PaymentService
	paymentServiceOnce     sync.Once
)

// SetPaymentService stores the singleton payment service instance
func SetPaymentService(p *PaymentService) {
	paymentServiceOnce.Do(func() {
		paymentServiceInstance = p
	})
}

// GetPaymentService returns the singleton payment service instance
func GetPaymentService() *PaymentService {
	return paymentServiceInstance
}

// PaymentService is the wallet collaborator: balances, transfers and
// transaction history, keyed by phone number. Accounts are auto-created on
// first contact with the system.
type PaymentService struct {
	store   storage.Store
	sandbox bool

	// Serializes read-modify-write across the two accounts of a transfer
	mu sync.Mutex
}

// NewPaymentService creates the wallet service. Sandbox mode follows the
// aggregator username convention.
func NewPaymentService(store storage.Store) *PaymentService {
	username := os.Getenv("AT_USERNAME")
	if username == "" {
		username = "sandbox"
	}
	return &PaymentService{
		store:   store,
		sandbox: username == "sandbox",
	}
}

// Register enrolls a phone number, creating its wallet account if missing.
// Idempotent; called on every first contact across all channels.
func (p *PaymentService) Register(phone string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registerLocked(phone)
}

func (p *PaymentService) registerLocked(phone string) *models.WalletAccount {
	if account, err := p.store.GetAccount(phone); err == nil {
		return account
	}

	account := &models.WalletAccount{Phone: phone, Currency: models.DefaultCurrency}
	if p.sandbox {
		account.Balance = SandboxStartingBalance
	}
	if err := p.store.SaveAccount(account); err != nil {
		log.Printf("❌ [Payment] Failed to create account for %s: %v", phone, err)
		return account
	}
	log.Printf("[Payment] New user registered: %s (balance %s TZS)", phone, ussd.FormatAmount(account.Balance))
	return account
}

// IsRegistered reports whether the phone has a wallet account
func (p *PaymentService) IsRegistered(phone string) bool {
	_, err := p.store.GetAccount(phone)
	return err == nil
}

// Balance returns the current balance, auto-enrolling if needed
func (p *PaymentService) Balance(phone string) (int64, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	account := p.registerLocked(phone)
	return account.Balance, account.Currency
}

// validateRecipient mirrors the environment split: sandbox transfers only
// reach numbers already known to the system, live transfers any plausible
// MSISDN
func (p *PaymentService) validateRecipient(phone string) error {
	if p.sandbox {
		if !p.IsRegistered(phone) {
			return fmt.Errorf("number %s not registered. They need to send a message first to register", phone)
		}
		return nil
	}
	if !livePhonePattern.MatchString(phone) {
		return fmt.Errorf("invalid phone number format. Use: +255683859574")
	}
	return nil
}

// Transfer moves money between two wallets. All failures come back as
// user-facing messages.
func (p *PaymentService) Transfer(ctx context.Context, from, to string, amount int64) ussd.TransferResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	sender := p.registerLocked(from)

	if err := p.validateRecipient(to); err != nil {
		return ussd.TransferResult{OK: false, Message: fmt.Sprintf("Transfer failed: %v", err)}
	}
	if amount < ussd.MinTransferAmount {
		return ussd.TransferResult{OK: false, Message: fmt.Sprintf("Minimum transfer amount is %d TZS", ussd.MinTransferAmount)}
	}
	if sender.Balance < amount {
		return ussd.TransferResult{OK: false, Message: fmt.Sprintf("Insufficient balance. Available: %s TZS", ussd.FormatAmount(sender.Balance))}
	}

	recipient := p.registerLocked(to)

	sender.Balance -= amount
	recipient.Balance += amount
	if err := p.store.SaveAccount(sender); err != nil {
		return ussd.TransferResult{OK: false, Message: "Payment failed. Please try again."}
	}
	if err := p.store.SaveAccount(recipient); err != nil {
		// Roll the sender back; the recipient row never changed
		sender.Balance += amount
		_ = p.store.SaveAccount(sender)
		return ussd.TransferResult{OK: false, Message: "Payment failed. Please try again."}
	}

	tx := &models.Transaction{
		TransactionID: utils.GenerateRef("TX"),
		FromPhone:     from,
		ToPhone:       to,
		Amount:        amount,
		Description:   "USSD Transfer",
		Status:        models.TransactionStatusCompleted,
	}
	if _, err := p.store.CreateTransaction(tx); err != nil {
		log.Printf("❌ [Payment] Failed to record transaction %s: %v", tx.TransactionID, err)
	}

	log.Printf("[Payment] %s sent %d TZS to %s (%s)", from, amount, to, tx.TransactionID)
	return ussd.TransferResult{
		OK:      true,
		Message: fmt.Sprintf("Payment successful! Sent %s TZS to %s. New balance: %s TZS", ussd.FormatAmount(amount), to, ussd.FormatAmount(sender.Balance)),
	}
}

// AddMoney credits the wallet (demo top-up) and returns the new balance
func (p *PaymentService) AddMoney(phone string, amount int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	account := p.registerLocked(phone)
	account.Balance += amount
	if err := p.store.SaveAccount(account); err != nil {
		log.Printf("❌ [Payment] Failed to credit %s: %v", phone, err)
	}
	return account.Balance
}

// DeductMoney debits the wallet, failing if the balance does not cover the
// amount. Used by checkout once a push payment confirms.
func (p *PaymentService) DeductMoney(phone string, amount int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account := p.registerLocked(phone)
	if account.Balance < amount {
		return account.Balance, fmt.Errorf("insufficient balance. Available: %s TZS, Required: %s TZS",
			ussd.FormatAmount(account.Balance), ussd.FormatAmount(amount))
	}

	account.Balance -= amount
	if err := p.store.SaveAccount(account); err != nil {
		account.Balance += amount
		return account.Balance, fmt.Errorf("failed to update balance")
	}

	log.Printf("[Payment] Deducted %d TZS from %s. New balance: %d TZS", amount, phone, account.Balance)
	return account.Balance, nil
}

// Transactions returns the phone's most recent wallet movements
func (p *PaymentService) Transactions(phone string, limit int) []*models.Transaction {
	txs, err := p.store.GetTransactionsByPhone(phone, limit)
	if err != nil {
		log.Printf("❌ [Payment] Failed to fetch transactions for %s: %v", phone, err)
		return nil
	}
	return txs
}
