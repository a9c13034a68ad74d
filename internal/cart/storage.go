package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

// Storage is the durable per-session slot holding the serialized cart.
type Storage interface {
	// Load returns nil data when nothing has been stored.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(session string) string
}

// RedisStorage keeps a session's cart under a single Redis key.
type RedisStorage struct {
	store redisStore
	key   string
	ttl   time.Duration
}

// NewRedisStorage binds storage to the session key. A zero ttl never expires.
func NewRedisStorage(store redisStore, session string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{store: store, key: store.CartKey(session), ttl: ttl}
}

func (s *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	value, err := s.store.Get(ctx, s.key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *RedisStorage) Save(ctx context.Context, data []byte) error {
	return s.store.Set(ctx, s.key, string(data), s.ttl)
}

func (s *RedisStorage) Delete(ctx context.Context) error {
	return s.store.Del(ctx, s.key)
}

// MemoryStore is an in-process stand-in for Redis. Sessions opened from the
// same store share their slot, which models two tabs on one browser.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: map[string][]byte{}}
}

// Session returns storage bound to one session slot.
func (m *MemoryStore) Session(session string) Storage {
	return &memorySlot{store: m, session: session}
}

// Raw exposes the stored bytes for a session.
func (m *MemoryStore) Raw(session string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[session]
	return append([]byte(nil), data...), ok
}

// Put overwrites a session slot with arbitrary bytes.
func (m *MemoryStore) Put(session string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[session] = append([]byte(nil), data...)
}

type memorySlot struct {
	store   *MemoryStore
	session string
}

func (s *memorySlot) Load(context.Context) ([]byte, error) {
	data, ok := s.store.Raw(s.session)
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (s *memorySlot) Save(_ context.Context, data []byte) error {
	s.store.Put(s.session, data)
	return nil
}

func (s *memorySlot) Delete(context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.slots, s.session)
	return nil
}
