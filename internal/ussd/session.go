package ussd

import (
	"log"
	"sync"
	"time"
)

// DefaultSessionTTL bounds how long an abandoned session survives. USSD
// turns are short; a session idle this long is gone on the carrier side too.
const DefaultSessionTTL = 90 * time.Second

// Session is one user's position in the menu tree, keyed by phone number.
// The aggregator's sessionId is not stable across requests and is never used
// as a key.
type Session struct {
	Phone      string
	State      State
	Locale     Locale
	CreatedAt  time.Time
	LastActive time.Time
}

// Registrar is the auto-enrollment hook invoked when a session is first
// created; the payments collaborator registers the phone for wallet use.
type Registrar interface {
	Register(phone string)
}

// SessionStore keeps at most one live session per phone number
type SessionStore interface {
	// GetOrCreate returns the live session for the phone, creating a fresh
	// one at the language-selection entry state when none exists (or the
	// existing one has idled out). A missing session is never an error.
	GetOrCreate(phone string) (session *Session, created bool)
	// Touch marks the session as active; called on every continuation.
	Touch(session *Session)
	// Delete removes the session; idempotent, called on every terminal reply.
	Delete(phone string)
	// Len reports the number of live sessions, for monitoring.
	Len() int
}

// MemorySessionStore is the in-memory SessionStore. A background sweep plus
// a lazy check on access keep abandoned sessions from accumulating.
type MemorySessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	ttl       time.Duration
	registrar Registrar

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemorySessionStore creates a session store and starts its sweeper.
// registrar may be nil in tests.
func NewMemorySessionStore(ttl time.Duration, registrar Registrar) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &MemorySessionStore{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		registrar: registrar,
		stop:      make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemorySessionStore) GetOrCreate(phone string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, exists := s.sessions[phone]; exists {
		// Lazy expiry: an idled-out session is replaced, not resumed
		if time.Since(session.LastActive) <= s.ttl {
			return session, false
		}
		delete(s.sessions, phone)
	}

	session := &Session{
		Phone:      phone,
		State:      LanguageSelect{},
		Locale:     DefaultLocale,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
	s.sessions[phone] = session

	if s.registrar != nil {
		s.registrar.Register(phone)
	}
	return session, true
}

func (s *MemorySessionStore) Touch(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.LastActive = time.Now()
}

func (s *MemorySessionStore) Delete(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phone)
}

func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the sweeper goroutine
func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) sweep() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			removed := 0
			for phone, session := range s.sessions {
				if time.Since(session.LastActive) > s.ttl {
					delete(s.sessions, phone)
					removed++
				}
			}
			s.mu.Unlock()
			if removed > 0 {
				log.Printf("[USSD] Swept %d idle session(s)", removed)
			}
		}
	}
}
