package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/uniformhub-backend/pkg/auth"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func orderRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "parent_1"}))
}

func createdOrder(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"total":"119.98"}}`))
	})
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryIdempotencyStore(), logger.Nop(), MoneyIdempotencyTTL)(createdOrder(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(`{}`, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls int
	handler := Idempotency(store, logger.Nop(), MoneyIdempotencyTTL)(createdOrder(&calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"lines":1}`, "order-abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, orderRequest(`{"lines":1}`, "order-abc"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, `{"data":{"total":"119.98"}}`, replay.Body.String())
	assert.Equal(t, MoneyIdempotencyTTL, store.ttls["idem:parent_1|POST|/api/v1/orders:order-abc"])
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryIdempotencyStore(), logger.Nop(), DefaultIdempotencyTTL)(createdOrder(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"lines":1}`, "k"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(`{"lines":2}`, "k"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsRetryWhileInFlight(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls int
	handler := Idempotency(store, logger.Nop(), DefaultIdempotencyTTL)(createdOrder(&calls))

	key := store.IdempotencyKey("parent_1|POST|/api/v1/orders", "k")
	_, _ = store.SetNX(context.Background(), key, pendingMarker, time.Minute)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(`{}`, "k"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyForgetsServerErrors(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var calls int
	handler := Idempotency(store, logger.Nop(), DefaultIdempotencyTTL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{}`, "retry-me"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{}`, "retry-me"))

	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyScopesKeysPerCaller(t *testing.T) {
	var calls int
	handler := Idempotency(newMemoryIdempotencyStore(), logger.Nop(), DefaultIdempotencyTTL)(createdOrder(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "shared"))
	other := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	other.Header.Set(IdempotencyHeader, "shared")
	other = other.WithContext(auth.WithIdentity(other.Context(), auth.Identity{Subject: "parent_2"}))
	handler.ServeHTTP(httptest.NewRecorder(), other)

	assert.Equal(t, 2, calls)
}
