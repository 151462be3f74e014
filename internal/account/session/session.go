// Package session tracks the one identity logged in to this process.
//
// The desktop shell runs a single operator at a time, so there is exactly
// one session cell. Logging in overwrites it (last writer wins) and logging
// out clears it. An expired session reads as anonymous but stays in the cell
// until the next Logout or Login.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
)

// ErrAnonymous is returned by Current when nobody is logged in.
var ErrAnonymous = errors.New("session: not logged in")

// Session is the identity held by the tracker.
type Session struct {
	UserID   string
	Username string
	Role     domain.Role
	Hospital string
	Phone    string
	Address  string

	// TokenID identifies the bearer token minted for this session. A token
	// carrying any other id belongs to an older session.
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero means no expiry
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Identity returns the login payload the session was created from.
func (s Session) Identity() domain.Identity {
	return domain.Identity{
		UserID:   s.UserID,
		Username: s.Username,
		Role:     s.Role,
		Hospital: s.Hospital,
		Phone:    s.Phone,
		Address:  s.Address,
	}
}

// Store holds the session cell. Implementations must be safe for concurrent
// use and must not block beyond the read or write of the cell.
type Store interface {
	Get() (Session, bool)
	Set(Session)
	Clear()
}

// MemoryStore is a Store guarded by a read/write mutex.
type MemoryStore struct {
	mu  sync.RWMutex
	cur *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cur == nil {
		return Session{}, false
	}
	return *m.cur, true
}

func (m *MemoryStore) Set(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = &s
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
}

// Tracker is the session API used by the rest of the service.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker returns an anonymous tracker over store. A nil store gets a
// fresh MemoryStore.
func NewTracker(store Store) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{store: store, now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Login replaces whatever session is held.
func (t *Tracker) Login(s Session) { t.store.Set(s) }

// Logout clears the cell. Logging out while anonymous is a no-op.
func (t *Tracker) Logout() { t.store.Clear() }

// IsLoggedIn reports whether an unexpired session is held.
func (t *Tracker) IsLoggedIn() bool {
	_, err := t.Current()
	return err == nil
}

// Current returns the held session, or ErrAnonymous if there is none or it
// has expired.
func (t *Tracker) Current() (Session, error) {
	s, ok := t.store.Get()
	if !ok || s.Expired(t.now()) {
		return Session{}, ErrAnonymous
	}
	return s, nil
}
