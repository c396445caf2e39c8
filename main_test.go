package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Templasan/MarketPlacer/cache"
	"github.com/Templasan/MarketPlacer/common/auth"
	"github.com/Templasan/MarketPlacer/events"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository/memory"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenManager("integration-secret", time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	deps := dependencies{
		Store:     memory.NewStore(),
		HomeCache: cache.NewMemoryCache(),
		Publisher: events.Fanout{},
		Tokens:    tokens,
		Metrics:   metrics.New(reg),
		Registry:  reg,
	}
	cfg := &Config{
		Env:            "test",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	r, limiter := newRouter(cfg, zap.NewNop(), deps)
	t.Cleanup(limiter.Stop)
	return r
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func registerAndLogin(t *testing.T, r *gin.Engine, name, email, role string) string {
	t.Helper()
	code, _ := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "s3cret-pass", "role": role,
	})
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	r := testRouter(t)
	code, body := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
}

func TestPurchaseFlow(t *testing.T) {
	r := testRouter(t)

	seller := registerAndLogin(t, r, "Loja Gamer", "loja@example.com", "Vendedor")
	buyer := registerAndLogin(t, r, "Ana", "ana@example.com", "Comum")

	code, product := call(t, r, http.MethodPost, "/api/products", seller, gin.H{
		"name": "Teclado Mecânico", "price": "199.90", "category": "Gamer", "stock": 2,
	})
	require.Equal(t, http.StatusCreated, code)
	productID, _ := product["id"].(string)
	require.NotEmpty(t, productID)

	code, _ = call(t, r, http.MethodPost, "/api/products", buyer, gin.H{
		"name": "Mouse", "price": "50", "category": "Gamer", "stock": 1,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, cart := call(t, r, http.MethodPost, "/api/cart/items", buyer, gin.H{"product_id": productID, "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "399.8", cart["total"])

	code, created := call(t, r, http.MethodPost, "/api/cart/checkout", buyer, nil)
	require.Equal(t, http.StatusCreated, code)
	order := created["order"].(map[string]interface{})
	assert.Equal(t, "Pendente", order["status"])
	orderID := order["id"].(string)

	code, cart = call(t, r, http.MethodGet, "/api/cart", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, cart["items"])

	code, _ = call(t, r, http.MethodPost, "/api/orders/"+orderID+"/pay", seller, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, paid := call(t, r, http.MethodPost, "/api/orders/"+orderID+"/pay", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pago", paid["order"].(map[string]interface{})["status"])

	code, product = call(t, r, http.MethodGet, "/api/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), product["stock"])

	code, _ = call(t, r, http.MethodPatch, "/api/orders/"+orderID+"/status", seller, gin.H{"status": "Enviado"})
	require.Equal(t, http.StatusOK, code)

	code, history := call(t, r, http.MethodGet, "/api/orders/"+orderID+"/history", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, history["history"], 3)

	code, sellerOrders := call(t, r, http.MethodGet, "/api/orders/seller", seller, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, sellerOrders["orders"], 1)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := testRouter(t)

	code, _ := call(t, r, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, r, http.MethodGet, "/api/orders/all", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, r, http.MethodGet, "/api/products/categories", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDeactivatedAccountTokenIsRejected(t *testing.T) {
	r := testRouter(t)
	token := registerAndLogin(t, r, "Ana", "ana@example.com", "Comum")

	code, me := call(t, r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	id, _ := me["id"].(string)
	require.NotEmpty(t, id)

	code, _ = call(t, r, http.MethodDelete, "/api/users/"+id, token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, r, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusForbidden, code)
}
