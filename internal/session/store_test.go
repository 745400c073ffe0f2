package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noodlesaucehaven/storefront/internal/cart"
	"github.com/noodlesaucehaven/storefront/internal/domain"
)

var udon = domain.Product{
	ID:       "udon-classic",
	Name:     "Udon Classic",
	Price:    decimal.NewFromInt(210),
	Category: domain.CategoryNoodles,
}

func sampleCart() domain.CartState {
	s := cart.NewStore()
	s.AddToCart(udon)
	return s.UpdateQuantity(udon.ID, 3)
}

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a cart", func(t *testing.T) {
		store, mr := setupRedisStore(t, time.Hour)

		require.NoError(t, store.Save(ctx, "abc", sampleCart()))
		assert.True(t, mr.Exists("session:abc:cart"))
		assert.Equal(t, time.Hour, mr.TTL("session:abc:cart"))

		got, err := store.Load(ctx, "abc")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 3, got.Items[0].Quantity)
		assert.Equal(t, 3, got.ItemCount)
		assert.Equal(t, "630", got.Total.String())
		assert.NoError(t, cart.Verify(got))
	})

	t.Run("missing key", func(t *testing.T) {
		store, _ := setupRedisStore(t, time.Hour)
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expires with the ttl", func(t *testing.T) {
		store, mr := setupRedisStore(t, time.Minute)
		require.NoError(t, store.Save(ctx, "abc", sampleCart()))

		mr.FastForward(2 * time.Minute)

		_, err := store.Load(ctx, "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		store, mr := setupRedisStore(t, time.Hour)
		require.NoError(t, mr.Set("session:abc:cart", "{not json"))

		_, err := store.Load(ctx, "abc")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store, mr := setupRedisStore(t, time.Hour)
		require.NoError(t, store.Save(ctx, "abc", sampleCart()))
		require.NoError(t, store.Delete(ctx, "abc"))
		assert.False(t, mr.Exists("session:abc:cart"))
	})

	t.Run("server down", func(t *testing.T) {
		store, mr := setupRedisStore(t, time.Hour)
		mr.Close()

		_, err := store.Load(ctx, "abc")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	state := sampleCart()
	require.NoError(t, store.Save(ctx, "abc", state))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, state, got)

	got.Items[0].Quantity = 99
	again, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Items[0].Quantity)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "def", state))
	require.NoError(t, store.Delete(ctx, "def"))
	_, err = store.Load(ctx, "def")
	assert.ErrorIs(t, err, ErrNotFound)
}
