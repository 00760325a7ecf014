package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoconnect/soko-backend/internal/storage"
)

const (
	buyerPhone     = "+255683859574"
	recipientPhone = "+255700000001"
)

func newSandboxPayments(t *testing.T) *PaymentService {
	t.Helper()
	t.Setenv("AT_USERNAME", "sandbox")
	return NewPaymentService(storage.NewMemoryStore())
}

func TestRegisterGrantsSandboxBalance(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)

	balance, currency := p.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance), balance)
	assert.Equal(t, "TZS", currency)
}

func TestRegisterIsIdempotent(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)
	p.AddMoney(buyerPhone, 500)
	p.Register(buyerPhone)

	balance, _ := p.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance+500), balance)
}

func TestIsRegisteredTracksEnrollment(t *testing.T) {
	p := newSandboxPayments(t)

	assert.False(t, p.IsRegistered(buyerPhone))
	p.Register(buyerPhone)
	assert.True(t, p.IsRegistered(buyerPhone))
}

func TestTransferMovesMoneyAndRecordsTransaction(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)
	p.Register(recipientPhone)

	result := p.Transfer(context.Background(), buyerPhone, recipientPhone, 2500)
	require.True(t, result.OK)
	assert.Equal(t, "Payment successful! Sent 2,500 TZS to "+recipientPhone+". New balance: 7,500 TZS", result.Message)

	senderBalance, _ := p.Balance(buyerPhone)
	recipientBalance, _ := p.Balance(recipientPhone)
	assert.Equal(t, int64(7500), senderBalance)
	assert.Equal(t, int64(12500), recipientBalance)

	txs := p.Transactions(buyerPhone, 5)
	require.Len(t, txs, 1)
	assert.Equal(t, buyerPhone, txs[0].FromPhone)
	assert.Equal(t, recipientPhone, txs[0].ToPhone)
	assert.Equal(t, int64(2500), txs[0].Amount)
}

func TestTransferToUnknownSandboxNumberFails(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)

	result := p.Transfer(context.Background(), buyerPhone, recipientPhone, 500)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "not registered")

	balance, _ := p.Balance(buyerPhone)
	assert.Equal(t, int64(SandboxStartingBalance), balance)
}

func TestTransferInsufficientBalance(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)
	p.Register(recipientPhone)

	result := p.Transfer(context.Background(), buyerPhone, recipientPhone, 50000)
	assert.False(t, result.OK)
	assert.Equal(t, "Insufficient balance. Available: 10,000 TZS", result.Message)
}

func TestTransferBelowMinimum(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)
	p.Register(recipientPhone)

	result := p.Transfer(context.Background(), buyerPhone, recipientPhone, 50)
	assert.False(t, result.OK)
	assert.Equal(t, "Minimum transfer amount is 100 TZS", result.Message)
}

func TestLiveModeValidatesRecipientFormat(t *testing.T) {
	t.Setenv("AT_USERNAME", "production-account")
	p := NewPaymentService(storage.NewMemoryStore())
	p.AddMoney(buyerPhone, 5000)

	// Live mode starts wallets at zero
	result := p.Transfer(context.Background(), buyerPhone, "0700-not-a-number", 500)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "invalid phone number format")

	// A well-formed number needs no prior registration
	result = p.Transfer(context.Background(), buyerPhone, recipientPhone, 500)
	assert.True(t, result.OK, result.Message)
}

func TestLiveModeStartsAtZeroBalance(t *testing.T) {
	t.Setenv("AT_USERNAME", "production-account")
	p := NewPaymentService(storage.NewMemoryStore())

	balance, _ := p.Balance(buyerPhone)
	assert.Equal(t, int64(0), balance)
}

func TestDeductMoney(t *testing.T) {
	p := newSandboxPayments(t)
	p.Register(buyerPhone)

	newBalance, err := p.DeductMoney(buyerPhone, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), newBalance)

	_, err = p.DeductMoney(buyerPhone, 60000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient balance")

	balance, _ := p.Balance(buyerPhone)
	assert.Equal(t, int64(6000), balance)
}
