package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noodlesaucehaven/storefront/internal/domain"
)

var ErrNotFound = errors.New("session not found")

// Store persists each session's cart so it survives a restart or a failover
// to another instance. Instances do not reconcile with each other: a session
// is expected to be served by one instance at a time.
type Store interface {
	Load(ctx context.Context, id string) (domain.CartState, error)
	Save(ctx context.Context, id string, state domain.CartState) error
	Delete(ctx context.Context, id string) error
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	state     domain.CartState
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.CartState{}, ErrNotFound
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return domain.CartState{}, ErrNotFound
	}
	return e.state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state domain.CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{state: state.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (domain.CartState, error) {
	data, err := s.client.Get(ctx, cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartState{}, ErrNotFound
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("redis get cart: %w", err)
	}

	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.CartState{}, fmt.Errorf("unmarshal cart: %w", err)
	}
	return state, nil
}

// Save writes the cart and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, id string, state domain.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

func cartKey(id string) string {
	return fmt.Sprintf("session:%s:cart", id)
}
