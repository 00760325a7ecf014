package handlers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/storage"
)

const inboundPhone = "+255683859574"

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (r *recordingSender) SendSMS(to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[string][]string)
	}
	r.sent[to] = append(r.sent[to], body)
	return nil
}

func (r *recordingSender) messages(to string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[to]...)
}

func newSMSFixture(t *testing.T) (*SMSHandler, *recordingSender) {
	t.Setenv("AT_USERNAME", "sandbox")
	t.Setenv("PAYMENT_MODE", "sandbox")

	store := storage.NewSeededMemoryStore()
	payments := services.NewPaymentService(store)
	payments.Register(inboundPhone)
	recorder := &recordingSender{}
	sms := services.NewSMSService(recorder)
	marketplace := services.NewMarketplaceService(store, payments, sms)
	return NewSMSHandler(sms, payments, marketplace, nil), recorder
}

func TestInboundBalanceKeyword(t *testing.T) {
	h, recorder := newSMSFixture(t)

	require.True(t, h.handleKeyword(inboundPhone, "balance"))

	msgs := recorder.messages(inboundPhone)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Your wallet balance: 10,000 TZS. Thank you for using Soko Connect!", msgs[0])
}

func TestInboundOrdersKeywordEmpty(t *testing.T) {
	h, recorder := newSMSFixture(t)

	require.True(t, h.handleKeyword(inboundPhone, " ORDERS "))

	msgs := recorder.messages(inboundPhone)
	require.Len(t, msgs, 1)
	assert.Equal(t, "No orders yet. Dial the service code to start shopping.", msgs[0])
}

func TestInboundClearKeywordEmptiesCart(t *testing.T) {
	h, recorder := newSMSFixture(t)

	upd := h.marketplace.AddToCart(context.Background(), inboundPhone, "001", 2)
	require.True(t, upd.OK)

	require.True(t, h.handleKeyword(inboundPhone, "Clear"))

	msgs := recorder.messages(inboundPhone)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Cart cleared")
	assert.Empty(t, h.marketplace.Cart(inboundPhone).Items)
}

func TestInboundFreeTextNotHandled(t *testing.T) {
	h, recorder := newSMSFixture(t)

	assert.False(t, h.handleKeyword(inboundPhone, "do you have rice?"))
	assert.Empty(t, recorder.messages(inboundPhone))
}
