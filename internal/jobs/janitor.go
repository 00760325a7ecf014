package jobs

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

const (
	// defaultPendingOrderMaxAge is how long a push payment may sit
	// unconfirmed before the order expires and the buyer is told to retry
	defaultPendingOrderMaxAge = 5 * time.Minute

	sweepInterval = 30 * time.Second
)

// Janitor expires stale pending orders and reports service gauges. It is
// the only scheduled background work the service runs.
type Janitor struct {
	marketplace *services.MarketplaceService
	sessions    ussd.SessionStore
	maxAge      time.Duration

	mu        sync.Mutex
	stop      chan struct{}
	isRunning bool
}

// NewJanitor creates the background janitor. PENDING_ORDER_TTL (seconds)
// overrides the default pending-order lifetime.
func NewJanitor(marketplace *services.MarketplaceService, sessions ussd.SessionStore) *Janitor {
	maxAge := defaultPendingOrderMaxAge
	if v := os.Getenv("PENDING_ORDER_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			maxAge = time.Duration(secs) * time.Second
		}
	}
	return &Janitor{
		marketplace: marketplace,
		sessions:    sessions,
		maxAge:      maxAge,
		stop:        make(chan struct{}),
	}
}

// Start begins the sweep loop
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		log.Println("Janitor already running")
		return
	}
	j.isRunning = true
	log.Println("Starting janitor job...")
	go j.run(j.stop)
}

// Stop halts the sweep loop
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	j.stop = make(chan struct{})
	log.Println("Stopping janitor job...")
}

func (j *Janitor) run(stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	expired := j.marketplace.ExpirePending(j.maxAge)
	if expired > 0 {
		log.Printf("🧹 [Janitor] Expired %d pending order(s)", expired)
	}
	log.Printf("📊 [Janitor] sessions=%d pending_orders=%d", j.sessions.Len(), j.marketplace.PendingCount())
}
