package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/storage"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

func newJanitorFixture(t *testing.T) *Janitor {
	t.Helper()
	t.Setenv("AT_USERNAME", "sandbox")
	t.Setenv("PAYMENT_MODE", "sandbox")

	store := storage.NewSeededMemoryStore()
	payments := services.NewPaymentService(store)
	market := services.NewMarketplaceService(store, payments, nil)
	sessions := ussd.NewMemorySessionStore(time.Minute, nil)
	t.Cleanup(sessions.Close)
	return NewJanitor(market, sessions)
}

func TestJanitorStartStopIdempotent(t *testing.T) {
	j := newJanitorFixture(t)

	j.Start()
	j.Start() // second start is a no-op
	j.Stop()
	j.Stop() // second stop is a no-op

	// The loop can be restarted after a stop
	j.Start()
	j.Stop()
}

func TestJanitorLifecycleIsConcurrencySafe(t *testing.T) {
	j := newJanitorFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			j.Start()
		}()
		go func() {
			defer wg.Done()
			j.Stop()
		}()
	}
	wg.Wait()
	j.Stop()
}

func TestJanitorReadsPendingOrderTTL(t *testing.T) {
	t.Setenv("PENDING_ORDER_TTL", "42")
	j := newJanitorFixture(t)
	assert.Equal(t, 42*time.Second, j.maxAge)
}
