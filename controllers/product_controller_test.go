package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/controllers"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupProductRouter(svc *MockCatalogService) http.Handler {
	r, api := newEngine()
	pc := controllers.NewProductController(svc)
	r.GET("/products", pc.SearchProducts)
	r.GET("/products/:id", pc.GetProduct)
	api.POST("/products", pc.CreateProduct)
	api.DELETE("/products/:id", pc.DeleteProduct)
	api.POST("/products/:id/image-url", pc.ImageUploadURL)
	return r
}

func TestSearchProducts(t *testing.T) {
	t.Run("Success - parses filters", func(t *testing.T) {
		svc := new(MockCatalogService)
		min := decimal.RequireFromString("10.5")
		svc.On("Search", mock.Anything, mock.MatchedBy(func(f models.ProductFilter) bool {
			return f.Name == "espada" && f.Category == "Espadas" && f.MinPrice != nil && f.MinPrice.Equal(min) && f.MaxPrice == nil
		}), 2, 20).Return(&models.ProductPage{Items: []models.Product{}, Page: 2, PageSize: 20}, nil).Once()

		w := httptest.NewRecorder()
		setupProductRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?name=espada&category=Espadas&min_price=10.5&page=2&pageSize=20", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Failure - bad price - 400", func(t *testing.T) {
		svc := new(MockCatalogService)
		w := httptest.NewRecorder()
		setupProductRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products?max_price=abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetProduct(t *testing.T) {
	svc := new(MockCatalogService)
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(nil, apperrors.NotFound("product not found")).Once()

	w := httptest.NewRecorder()
	setupProductRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "product not found")

	w = httptest.NewRecorder()
	setupProductRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestCreateProduct(t *testing.T) {
	seller := models.Caller{ID: uuid.New(), Role: models.RoleVendedor}

	t.Run("Success - 201 Created", func(t *testing.T) {
		svc := new(MockCatalogService)
		svc.On("Create", mock.Anything, seller, mock.MatchedBy(func(req *models.CreateProductRequest) bool {
			return req.Name == "Mouse" && req.Price.Equal(decimal.RequireFromString("49.90"))
		})).Return(&models.Product{ID: uuid.New(), Name: "Mouse"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(`{"name":"Mouse","price":"49.90","category":"Gamer","stock":3}`))
		req.Header.Set("Content-Type", "application/json")
		bearer(req, seller)
		w := httptest.NewRecorder()
		setupProductRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("Failure - no token - 401", func(t *testing.T) {
		svc := new(MockCatalogService)
		req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		setupProductRouter(svc).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Failure - forbidden role - 403", func(t *testing.T) {
		svc := new(MockCatalogService)
		buyer := models.Caller{ID: uuid.New(), Role: models.RoleComum}
		svc.On("Create", mock.Anything, buyer, mock.Anything).Return(nil, apperrors.Forbidden("only sellers can list products")).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString(`{"name":"Mouse","price":1,"category":"Gamer"}`))
		req.Header.Set("Content-Type", "application/json")
		bearer(req, buyer)
		w := httptest.NewRecorder()
		setupProductRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "forbidden", body["kind"])
	})
}

func TestDeleteProduct(t *testing.T) {
	svc := new(MockCatalogService)
	owner := models.Caller{ID: uuid.New(), Role: models.RoleVendedor}
	id := uuid.New()
	svc.On("Deactivate", mock.Anything, id, owner).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+id.String(), nil)
	bearer(req, owner)
	w := httptest.NewRecorder()
	setupProductRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestImageUploadURL(t *testing.T) {
	svc := new(MockCatalogService)
	owner := models.Caller{ID: uuid.New(), Role: models.RoleVendedor}
	id := uuid.New()
	svc.On("ImageUploadURL", mock.Anything, id, owner, "foto.png", "").
		Return(&models.ImageUploadURL{URL: "https://s3/put", Key: "products/x.png", ExpiresIn: 900}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+id.String()+"/image-url", bytes.NewBufferString(`{"filename":"foto.png"}`))
	req.Header.Set("Content-Type", "application/json")
	bearer(req, owner)
	w := httptest.NewRecorder()
	setupProductRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://s3/put")
	svc.AssertExpectations(t)
}
