package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) CartKey(session string) string {
	return "uh:cart:" + session
}

func TestRedisStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	storage := NewRedisStorage(fake, "abc", 24*time.Hour)

	data, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	c, err := New(storage, quietLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, c.AddToCart(ctx, socks, 2, "", ""))

	assert.Contains(t, fake.values, "uh:cart:abc")
	assert.Equal(t, 24*time.Hour, fake.ttls["uh:cart:abc"])

	reopened, err := New(NewRedisStorage(fake, "abc", 0), quietLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 2, reopened.Count())

	require.NoError(t, reopened.ClearCart(ctx))
	assert.NotContains(t, fake.values, "uh:cart:abc")
}

func TestSessionsOpenHydrates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sessions, err := NewSessions(store.Session, quietLogger(), nil)
	require.NoError(t, err)

	first, err := sessions.Open(ctx, "tab")
	require.NoError(t, err)
	require.NoError(t, first.AddToCart(ctx, blazer, 1, "", ""))

	second, err := sessions.Open(ctx, "tab")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Count())

	_, err = sessions.Open(ctx, " ")
	assert.Error(t, err)
}
