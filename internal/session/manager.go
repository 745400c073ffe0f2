package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/noodlesaucehaven/storefront/internal/cart"
	"github.com/noodlesaucehaven/storefront/internal/checkout"
)

// Session owns one shopper's cart and checkout attempt.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Orchestrator

	lastSeen time.Time
}

// Manager keeps live sessions in memory and falls back to the Store for
// sessions this process has not seen yet. Once live, the in-memory cart is
// authoritative and the Store is only written to.
type Manager struct {
	store    Store
	checkout *checkout.Service
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*Session
	sfg  singleflight.Group
}

func NewManager(store Store, svc *checkout.Service, ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		checkout: svc,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		live:     make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	s := m.newSession(uuid.New().String(), cart.NewStore())

	m.mu.Lock()
	m.live[s.ID] = s
	m.mu.Unlock()

	return s
}

// Get returns the live session or restores it from the Store. It returns
// ErrNotFound when neither knows the id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.lookup(id); ok {
		return s, nil
	}

	v, err, _ := m.sfg.Do(id, func() (any, error) {
		if s, ok := m.lookup(id); ok {
			return s, nil
		}

		state, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		store, err := cart.Restore(state)
		if err != nil {
			m.logger.Warn("discarding inconsistent cart", "session_id", id, "error", err)
			store = cart.NewStore()
		}

		s := m.newSession(id, store)
		m.mu.Lock()
		m.live[id] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return v.(*Session), nil
}

// Save persists the session's current cart.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	return m.store.Save(ctx, s.ID, s.Cart.Snapshot())
}

// Evict drops live sessions idle for longer than the TTL. Their carts stay
// in the Store until it expires them. Sessions with a checkout in flight are
// kept.
func (m *Manager) Evict() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.live {
		if s.lastSeen.After(cutoff) || s.Checkout.Status().State == checkout.StateProcessing {
			continue
		}
		delete(m.live, id)
		evicted++
	}
	if evicted > 0 {
		m.logger.Info("evicted idle sessions", "count", evicted, "live", len(m.live))
	}
	return evicted
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live[id]
	if ok {
		s.lastSeen = m.now()
	}
	return s, ok
}

func (m *Manager) newSession(id string, store *cart.Store) *Session {
	return &Session{
		ID:       id,
		Cart:     store,
		Checkout: m.checkout.NewOrchestrator(store),
		lastSeen: m.now(),
	}
}
