package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/uniformhub-backend/api/controllers"
	"github.com/angelmondragon/uniformhub-backend/internal/access/accesstest"
	"github.com/angelmondragon/uniformhub-backend/internal/adminnotifications"
	"github.com/angelmondragon/uniformhub-backend/internal/cart"
	"github.com/angelmondragon/uniformhub-backend/internal/categories"
	"github.com/angelmondragon/uniformhub-backend/internal/orders"
	"github.com/angelmondragon/uniformhub-backend/internal/products"
	"github.com/angelmondragon/uniformhub-backend/internal/schools"
	"github.com/angelmondragon/uniformhub-backend/pkg/auth/authtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/config"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgredis "github.com/angelmondragon/uniformhub-backend/pkg/redis"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fakeRedis struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return value, nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		f.values[key] = v
	case []byte:
		f.values[key] = string(v)
	default:
		return false, errors.New("unsupported value")
	}
	return true, nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

type harness struct {
	handler  http.Handler
	conn     *gorm.DB
	provider *authtest.Provider
	registry *prometheus.Registry
	admin    *models.User
	parent   *models.User
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev, Port: "0", CORSOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{
			Window:        time.Minute,
			SearchIPLimit: 2,
			ContactLimit:  5,
			BookingLimit:  5,
		},
		Cart: config.CartConfig{SnapshotTTL: time.Hour, CookieName: "uh_cart"},
	}
}

func newHarness(t *testing.T, ready map[string]controllers.Pinger) harness {
	t.Helper()
	return newHarnessWithConfig(t, testConfig(), ready)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, ready map[string]controllers.Pinger) harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := accesstest.Logger()
	guard := accesstest.Guard(t, conn)
	provider := authtest.NewProvider(t)
	registry := prometheus.NewRegistry()
	bus := changefeed.NewBus(changefeed.NewMemoryBroker(), logg)

	notices := adminnotifications.NewEmitter(adminnotifications.NewRepository(conn))
	categoriesRepo := categories.NewRepository(conn)
	schoolsRepo := schools.NewRepository(conn)
	productsRepo := products.NewRepository(conn)

	categoriesService, err := categories.NewService(categoriesRepo, db.Wrap(conn), notices, guard, bus)
	require.NoError(t, err)
	schoolsService, err := schools.NewService(schoolsRepo, guard, bus)
	require.NoError(t, err)
	productsService, err := products.NewService(productsRepo, schoolsRepo, categoriesRepo, guard, bus)
	require.NoError(t, err)
	ordersService, err := orders.NewService(orders.NewRepository(conn), productsRepo, db.Wrap(conn), notices, guard, bus)
	require.NoError(t, err)
	store := cart.NewMemoryStore()
	carts, err := cart.NewSessions(store.Session, logg, nil)
	require.NoError(t, err)

	handler := NewRouter(Params{
		Config:     cfg,
		Logger:     logg,
		Registry:   registry,
		Verifier:   provider.Verifier(t),
		Guard:      guard,
		Redis:      newFakeRedis(),
		Bus:        bus,
		Ready:      ready,
		Now:        time.Now,
		Categories: categoriesService,
		Schools:    schoolsService,
		Products:   productsService,
		Orders:     ordersService,
		Carts:      carts,
	})

	return harness{
		handler:  handler,
		conn:     conn,
		provider: provider,
		registry: registry,
		admin:    accesstest.SeedUser(t, conn, "admin_1", enums.UserRoleAdmin),
		parent:   accesstest.SeedUser(t, conn, "parent_1", enums.UserRoleUser),
	}
}

func (h harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h harness) bearer(t *testing.T, user *models.User) string {
	t.Helper()
	return "Bearer " + h.provider.Token(t, user.Subject, time.Hour)
}

func decodeData(t *testing.T, body io.Reader, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Error.Code
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{
		"database": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})

	live := h.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, config.AppEnvDev, live.Header().Get("X-UniformHub-Env"))

	ready := h.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
	assert.Equal(t, "DEPENDENCY_ERROR", errorCode(t, ready.Body))
}

func TestHealthReadyWhenDependenciesAreUp(t *testing.T) {
	h := newHarness(t, map[string]controllers.Pinger{"database": stubPinger{}, "redis": stubPinger{}})

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeData(t, rec.Body, &body)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, map[string]string{"database": "up", "redis": "up"}, body.Checks)
}

func TestMetricsEndpointExposesRouteCounters(t *testing.T) {
	h := newHarness(t, nil)

	h.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestCategoryWritesBySignedInCaller(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"name":"Blazers"}`

	anonymous := h.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(body))
	req.Header.Set("Authorization", h.bearer(t, h.parent))
	created := h.do(t, req)
	require.Equal(t, http.StatusCreated, created.Code)

	list := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, list.Code)
	raw := list.Body.String()
	assert.NotContains(t, raw, `"description"`)
	var rows []models.Category
	decodeData(t, strings.NewReader(raw), &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Blazers", rows[0].Name)
	assert.Nil(t, rows[0].Description)

	target := "/api/v1/categories/" + rows[0].ID.String()
	req = httptest.NewRequest(http.MethodDelete, target, nil)
	req.Header.Set("Authorization", h.bearer(t, h.parent))
	assert.Equal(t, http.StatusForbidden, h.do(t, req).Code)

	req = httptest.NewRequest(http.MethodDelete, target, nil)
	req.Header.Set("Authorization", h.bearer(t, h.admin))
	assert.Equal(t, http.StatusOK, h.do(t, req).Code)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := h.do(t, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSchoolSearchIsRateLimited(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/schools?q=oak", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		assert.Equal(t, http.StatusOK, h.do(t, req).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schools?q=oak", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := h.do(t, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestOrderCreationRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[]}`))
	req.Header.Set("Authorization", h.bearer(t, h.parent))
	rec := h.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec.Body))
}

func TestCartRoundTripFollowsSessionHeader(t *testing.T) {
	h := newHarness(t, nil)
	school := &models.School{Name: "Oakridge Primary", Slug: "oakridge-primary", Location: "Shelbyville"}
	require.NoError(t, h.conn.Create(school).Error)
	category := &models.Category{Name: "Blazers"}
	require.NoError(t, h.conn.Create(category).Error)
	product := &models.Product{
		Name:       "Oakridge Blazer",
		Price:      decimal.RequireFromString("59.99"),
		SchoolID:   &school.ID,
		CategoryID: &category.ID,
		InStock:    true,
	}
	require.NoError(t, h.conn.Create(product).Error)

	add := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"`+product.ID.String()+`","quantity":2,"size":"M"}`))
	added := h.do(t, add)
	require.Equal(t, http.StatusOK, added.Code)
	session := added.Header().Get("X-Cart-Session")
	require.NotEmpty(t, session)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	get.Header.Set("X-Cart-Session", session)
	fetched := h.do(t, get)
	require.Equal(t, http.StatusOK, fetched.Code)
	var body struct {
		Session string      `json:"session"`
		Items   []cart.Item `json:"items"`
		Total   string      `json:"total"`
		Count   int         `json:"count"`
	}
	decodeData(t, fetched.Body, &body)
	assert.Equal(t, session, body.Session)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "M", body.Items[0].Size)
	require.NotNil(t, body.Items[0].School)
	assert.Equal(t, cart.Ref{ID: school.ID, Name: "Oakridge Primary"}, *body.Items[0].School)
	require.NotNil(t, body.Items[0].Category)
	assert.Equal(t, cart.Ref{ID: category.ID, Name: "Blazers"}, *body.Items[0].Category)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "119.98", body.Total)

	other := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	var empty struct {
		Items []cart.Item `json:"items"`
	}
	decodeData(t, other.Body, &empty)
	assert.Empty(t, empty.Items)

	remove := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+product.ID.String(), nil)
	remove.Header.Set("X-Cart-Session", session)
	removed := h.do(t, remove)
	require.Equal(t, http.StatusOK, removed.Code)
	decodeData(t, removed.Body, &body)
	assert.Empty(t, body.Items)
}

func TestCartCookieIsSecureOnlyInProduction(t *testing.T) {
	for env, secure := range map[string]bool{
		config.AppEnvDev:  false,
		"staging":         false,
		config.AppEnvProd: true,
	} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig()
			cfg.App.Env = env
			h := newHarnessWithConfig(t, cfg, nil)

			rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, "uh_cart", cookies[0].Name)
			assert.Equal(t, secure, cookies[0].Secure)
		})
	}
}

func TestCartRejectsOutOfStockProduct(t *testing.T) {
	h := newHarness(t, nil)
	product := &models.Product{Name: "Generic Socks", Price: decimal.RequireFromString("4.50"), InStock: true}
	require.NoError(t, h.conn.Create(product).Error)
	require.NoError(t, h.conn.Model(product).Update("in_stock", false).Error)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items",
		strings.NewReader(`{"product_id":"`+product.ID.String()+`","quantity":1}`))
	rec := h.do(t, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type sseReader struct {
	lines chan string
}

func newSSEReader(body io.Reader) *sseReader {
	r := &sseReader{lines: make(chan string, 64)}
	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			r.lines <- scanner.Text()
		}
	}()
	return r
}

func (r *sseReader) next(t *testing.T) string {
	t.Helper()
	select {
	case line, ok := <-r.lines:
		require.True(t, ok, "stream closed")
		return line
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream")
		return ""
	}
}

// event skips comments and blank lines and returns the next event name and data.
func (r *sseReader) event(t *testing.T) (string, string) {
	t.Helper()
	var name string
	for {
		line := r.next(t)
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && name != "":
			return name, strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestChangesStreamRelaysCategoryWrites(t *testing.T) {
	h := newHarness(t, nil)
	server := httptest.NewServer(h.handler)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/changes?topics=categories", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := newSSEReader(resp.Body)
	require.Equal(t, ": connected", stream.next(t))

	create, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/categories", strings.NewReader(`{"name":"Sportswear"}`))
	require.NoError(t, err)
	create.Header.Set("Authorization", h.bearer(t, h.admin))
	created, err := server.Client().Do(create)
	require.NoError(t, err)
	_ = created.Body.Close()
	require.Equal(t, http.StatusCreated, created.StatusCode)

	name, data := stream.event(t)
	assert.Equal(t, changefeed.TopicCategories, name)
	var event changefeed.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, changefeed.OpCreated, event.Op)
	assert.Contains(t, string(event.Payload), "Sportswear")
}

func TestChangesStreamGuardsAdminTopics(t *testing.T) {
	h := newHarness(t, nil)

	unknown := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/changes?topics=payroll", nil))
	assert.Equal(t, http.StatusBadRequest, unknown.Code)

	anonymous := h.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/changes?topics=categories,todos", nil))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/changes?topics=todos&access_token="+h.provider.Token(t, h.parent.Subject, time.Hour), nil)
	parent := h.do(t, req)
	assert.Equal(t, http.StatusForbidden, parent.Code)
}
