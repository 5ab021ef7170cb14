package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/variantcart/internal/cart"
	"github.com/jafarshop/variantcart/internal/cartapi"
	"github.com/jafarshop/variantcart/internal/config"
	"github.com/jafarshop/variantcart/internal/domain"
	"github.com/jafarshop/variantcart/internal/repository"
	"github.com/jafarshop/variantcart/internal/repository/memory"
)

const testServiceKey = "test-service-key"

type testEnv struct {
	router *gin.Engine
	repos  *repository.Repositories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith lets a test decorate the seeded repositories before the router is built
func newTestEnvWith(t *testing.T, decorate func(*repository.Repositories)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(testServiceKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:      "test",
		GuestStore:       config.GuestStoreConfig{Backend: config.GuestStoreMemory},
		API:              config.APIConfig{ServiceKeyHash: string(hash)},
		MergeConcurrency: 2,
	}
	repos := memory.NewRepositories()
	for _, p := range testProducts() {
		require.NoError(t, repos.Product.Upsert(context.Background(), p))
	}
	if decorate != nil {
		decorate(repos)
	}
	return &testEnv{router: NewRouter(cfg, repos, zap.NewNop()), repos: repos}
}

func testProducts() []*domain.Product {
	attrs := func(kv ...string) []domain.Attribute {
		var out []domain.Attribute
		for i := 0; i+1 < len(kv); i += 2 {
			out = append(out, domain.Attribute{Key: kv[i], Value: kv[i+1]})
		}
		return out
	}
	return []*domain.Product{
		{
			ID: "P1", Name: "Shirt", Price: decimal.NewFromInt(30),
			Variants: []domain.Variant{
				{ID: "va", SKU: "A", Attributes: attrs("Color", "Red"), Price: decimal.NewFromInt(30), Stock: 0, Status: domain.VariantStatusActive},
				{ID: "vb", SKU: "B", Attributes: attrs("Color", "Blue"), Price: decimal.NewFromInt(30), Stock: 0, Status: domain.VariantStatusActive},
			},
		},
		{
			ID: "P2", Name: "Scarf", Price: decimal.NewFromInt(20),
			Variants: []domain.Variant{
				{ID: "v1", SKU: "RED-S", Attributes: attrs("Color", "Red", "Size", "S"), Price: decimal.NewFromInt(20), Stock: 3, Status: domain.VariantStatusActive},
			},
		},
		{
			ID: "P3", Name: "Hoodie", Price: decimal.NewFromInt(50),
			Variants: []domain.Variant{
				{ID: "h1", SKU: "H-S", Attributes: attrs("Size", "S"), Price: decimal.NewFromInt(50), Stock: 2, Status: domain.VariantStatusActive},
				{ID: "h2", SKU: "H-M", Attributes: attrs("Size", "M"), Price: decimal.NewFromInt(50), Stock: 1, Status: domain.VariantStatusActive},
			},
		},
	}
}

type request struct {
	method  string
	path    string
	body    any
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type cartBody struct {
	Cart struct {
		Lines []domain.CartLine `json:"lines"`
	} `json:"cart"`
	Totals struct {
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
	} `json:"totals"`
	Code   string `json:"code"`
	Merged int    `json:"merged"`
	Failed []struct {
		ProductID string `json:"productId"`
	} `json:"failed"`
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) cartBody {
	t.Helper()
	var out cartBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func customer(id string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + testServiceKey, "X-Customer-ID": id}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/v1/products/P2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sku":"RED-S"`)

	w = env.do(t, request{method: http.MethodGet, path: "/v1/products/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSelection_OutOfStockVariant(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/v1/products/P1/selection?Color=Red"})
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		State struct {
			SelectedVariant *domain.Variant `json:"selectedVariant"`
		} `json:"state"`
		Attributes []struct {
			Key     string `json:"key"`
			Options []struct {
				Value              string `json:"value"`
				AvailabilityStatus string `json:"availabilityStatus"`
				IsDisabled         bool   `json:"isDisabled"`
			} `json:"options"`
		} `json:"attributes"`
		CanAddToCart bool `json:"canAddToCart"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotNil(t, view.State.SelectedVariant)
	assert.Equal(t, "A", view.State.SelectedVariant.SKU)
	assert.False(t, view.CanAddToCart)
	require.Len(t, view.Attributes, 1)
	for _, o := range view.Attributes[0].Options {
		assert.Equal(t, "outOfStock", o.AvailabilityStatus)
		assert.True(t, o.IsDisabled)
	}
}

func TestGuestCart_Flow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/v1/guest-cart"})
	require.Equal(t, http.StatusOK, w.Code)
	session := w.Header().Get("X-Guest-Session")
	require.NotEmpty(t, session, "a session is issued when absent")
	headers := map[string]string{"X-Guest-Session": session}

	w = env.do(t, request{method: http.MethodPost, path: "/v1/guest-cart/lines", headers: headers,
		body: map[string]any{"productId": "P2", "quantity": 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, "RED-S", body.Cart.Lines[0].SKU)
	assert.Equal(t, 1, body.Totals.Count)
	assert.True(t, decimal.NewFromInt(20).Equal(body.Totals.Total))

	lineID := body.Cart.Lines[0].ID
	w = env.do(t, request{method: http.MethodPatch, path: "/v1/guest-cart/lines/" + lineID, headers: headers,
		body: map[string]any{"quantity": 3}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeBody(t, w).Cart.Lines[0].Quantity)

	w = env.do(t, request{method: http.MethodDelete, path: "/v1/guest-cart/lines/" + lineID, headers: headers})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w).Cart.Lines)

	w = env.do(t, request{method: http.MethodDelete, path: "/v1/guest-cart/lines/" + lineID, headers: headers})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestCart_SkuErrors(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{"X-Guest-Session": "guest-1"}

	w := env.do(t, request{method: http.MethodPost, path: "/v1/guest-cart/lines", headers: headers,
		body: map[string]any{"productId": "P1", "quantity": 1}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "sku_required", decodeBody(t, w).Code)

	w = env.do(t, request{method: http.MethodPost, path: "/v1/guest-cart/lines", headers: headers,
		body: map[string]any{"productId": "P3", "quantity": 1, "sku": "H-XL"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_sku", decodeBody(t, w).Code)

	w = env.do(t, request{method: http.MethodPost, path: "/v1/guest-cart/lines", headers: headers,
		body: map[string]any{"productId": "P3", "quantity": 0, "sku": "H-S"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/v1/guest-cart", headers: map[string]string{"X-Guest-Session": "../bad"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCart_RequiresServiceKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, request{method: http.MethodGet, path: "/v1/cart"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/v1/cart",
		headers: map[string]string{"Authorization": "Bearer wrong", "X-Customer-ID": "c1"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/v1/cart",
		headers: map[string]string{"Authorization": "Bearer " + testServiceKey}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, request{method: http.MethodGet, path: "/v1/cart", headers: customer("c1")})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCart_IdempotentAdd(t *testing.T) {
	env := newTestEnv(t)
	headers := customer("c1")
	headers["Idempotency-Key"] = "add-1"
	add := map[string]any{"productId": "P3", "quantity": 1, "sku": "h-s"}

	w := env.do(t, request{method: http.MethodPost, path: "/v1/cart/lines", headers: headers, body: add})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodPost, path: "/v1/cart/lines", headers: headers, body: add})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, 1, body.Cart.Lines[0].Quantity, "replay does not add twice")
	assert.Equal(t, "H-S", body.Cart.Lines[0].SKU)

	add["quantity"] = 5
	w = env.do(t, request{method: http.MethodPost, path: "/v1/cart/lines", headers: headers, body: add})
	assert.Equal(t, http.StatusConflict, w.Code)
}

type slowProducts struct {
	repository.ProductRepository
	delay time.Duration
}

func (s slowProducts) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	time.Sleep(s.delay)
	return s.ProductRepository.GetProduct(ctx, id)
}

func TestCart_ConcurrentSameKeyAddsOnce(t *testing.T) {
	env := newTestEnvWith(t, func(r *repository.Repositories) {
		r.Product = slowProducts{ProductRepository: r.Product, delay: 20 * time.Millisecond}
	})
	headers := customer("c1")
	headers["Idempotency-Key"] = "same-key"
	add := map[string]any{"productId": "P3", "quantity": 1, "sku": "H-S"}

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = env.do(t, request{method: http.MethodPost, path: "/v1/cart/lines", headers: headers, body: add}).Code
		}()
	}
	wg.Wait()
	assert.Contains(t, codes, http.StatusOK)

	w := env.do(t, request{method: http.MethodGet, path: "/v1/cart", headers: customer("c1")})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, 1, body.Cart.Lines[0].Quantity)
}

func TestMerge(t *testing.T) {
	env := newTestEnv(t)
	guest := map[string]string{"X-Guest-Session": "guest-merge"}

	w := env.do(t, request{method: http.MethodPost, path: "/v1/guest-cart/lines", headers: guest,
		body: map[string]any{"productId": "P3", "quantity": 2, "sku": "H-S"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, request{method: http.MethodPost, path: "/v1/cart/lines", headers: customer("c1"),
		body: map[string]any{"productId": "P3", "quantity": 1, "sku": "H-S"}})
	require.Equal(t, http.StatusOK, w.Code)

	headers := customer("c1")
	headers["X-Guest-Session"] = "guest-merge"
	w = env.do(t, request{method: http.MethodPost, path: "/v1/cart/merge", headers: headers})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, 1, body.Merged)
	assert.Empty(t, body.Failed)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, 3, body.Cart.Lines[0].Quantity)

	// guest cart is empty and a second merge changes nothing
	w = env.do(t, request{method: http.MethodGet, path: "/v1/guest-cart", headers: guest})
	assert.Empty(t, decodeBody(t, w).Cart.Lines)

	w = env.do(t, request{method: http.MethodPost, path: "/v1/cart/merge", headers: headers})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeBody(t, w).Cart.Lines[0].Quantity)
}

func TestMerge_LostResponseOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	var lose atomic.Bool
	lose.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/cart/lines" && lose.CompareAndSwap(true, false) {
			env.router.ServeHTTP(httptest.NewRecorder(), r)
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		env.router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := cartapi.NewClient(srv.URL, testServiceKey, "c1", nil)
	guest := cart.NewGuestCarts(cart.NewMemoryDocuments(), cart.NewNormalizer(client, nil), nil).Get("g1")
	_, err := guest.AddLine(ctx, "P3", 2, "H-S")
	require.NoError(t, err)

	result, err := cart.NewMerger(guest, client, 1, nil).Merge(ctx)
	require.NoError(t, err)
	require.True(t, result.Partial())

	result, err = cart.NewMerger(guest, client, 1, nil).Merge(ctx)
	require.NoError(t, err)
	assert.False(t, result.Partial())

	w := env.do(t, request{method: http.MethodGet, path: "/v1/cart", headers: customer("c1")})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body.Cart.Lines, 1)
	assert.Equal(t, 2, body.Cart.Lines[0].Quantity)
}

func TestMerge_RequiresGuestSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, request{method: http.MethodPost, path: "/v1/cart/merge", headers: customer("c1")})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportCatalog(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"Authorization": "Bearer " + testServiceKey}

	payload := map[string]any{
		"products": []map[string]any{
			{
				"id": "P9", "name": "Cap", "price": "12",
				"variants": []map[string]any{
					{"id": "c1", "sku": "cap-1", "attributes": []map[string]string{{"key": "Color", "value": "Black"}}, "price": "12", "stock": 4},
				},
			},
			{
				"id": "P10", "name": "Broken", "price": "5",
				"variants": []map[string]any{
					{"id": "b1", "sku": "X1", "attributes": []map[string]string{{"key": "Size", "value": "S"}}, "price": "5", "stock": 1},
					{"id": "b2", "sku": "X2", "attributes": []map[string]string{{"key": "Size", "value": "S"}}, "price": "5", "stock": 1},
				},
			},
		},
	}

	w := env.do(t, request{method: http.MethodPut, path: "/v1/admin/catalog", body: payload})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, request{method: http.MethodPut, path: "/v1/admin/catalog", headers: auth, body: payload})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	var report struct {
		Imported int `json:"imported"`
		Rejected []struct {
			ProductID string `json:"productId"`
		} `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "P10", report.Rejected[0].ProductID)

	p, err := env.repos.Product.GetProduct(context.Background(), "P9")
	require.NoError(t, err)
	assert.Equal(t, "CAP-1", p.Variants[0].SKU)
	assert.Equal(t, domain.VariantStatusActive, p.Variants[0].Status)

	w = env.do(t, request{method: http.MethodPut, path: "/v1/admin/catalog", headers: auth, body: map[string]any{"items": []string{}}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
