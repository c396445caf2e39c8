package controllers_test

import (
	"context"
	"net/http"
	"strings"

	"github.com/Templasan/MarketPlacer/common/auth"
	"github.com/Templasan/MarketPlacer/middleware"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// stubTokens accepts tokens of the form "<role>:<uuid>".
type stubTokens struct{}

func (stubTokens) Parse(token string) (*auth.Claims, error) {
	role, id, _ := strings.Cut(token, ":")
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{UserID: uid, Role: role}, nil
}

func bearer(req *http.Request, c models.Caller) {
	req.Header.Set("Authorization", "Bearer "+string(c.Role)+":"+c.ID.String())
}

func newEngine() (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	return r, r.Group("/api", middleware.AuthMiddleware(stubTokens{}))
}

type MockCatalogService struct{ mock.Mock }

func (m *MockCatalogService) Create(ctx context.Context, caller models.Caller, req *models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}
func (m *MockCatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}
func (m *MockCatalogService) Search(ctx context.Context, filter models.ProductFilter, page, pageSize int) (*models.ProductPage, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductPage), args.Error(1)
}
func (m *MockCatalogService) Update(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, id, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}
func (m *MockCatalogService) Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error {
	return m.Called(ctx, id, caller).Error(0)
}
func (m *MockCatalogService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}
func (m *MockCatalogService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, sellerID)
	return args.Get(0).([]models.Product), args.Error(1)
}
func (m *MockCatalogService) Categories() []string {
	return m.Called().Get(0).([]string)
}
func (m *MockCatalogService) ImageUploadURL(ctx context.Context, id uuid.UUID, caller models.Caller, filename, contentType string) (*models.ImageUploadURL, error) {
	args := m.Called(ctx, id, caller, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageUploadURL), args.Error(1)
}

type MockCartService struct{ mock.Mock }

func (m *MockCartService) GetOrCreate(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Cart, error) {
	args := m.Called(ctx, userID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}
func (m *MockCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error {
	return m.Called(ctx, userID, productID, quantity, caller).Error(0)
}
func (m *MockCartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error {
	return m.Called(ctx, userID, productID, quantity, caller).Error(0)
}
func (m *MockCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID, caller models.Caller) error {
	return m.Called(ctx, userID, productID, caller).Error(0)
}
func (m *MockCartService) Clear(ctx context.Context, userID uuid.UUID, caller models.Caller) error {
	return m.Called(ctx, userID, caller).Error(0)
}
func (m *MockCartService) View(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.CartView, error) {
	args := m.Called(ctx, userID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartView), args.Error(1)
}

type MockCheckoutService struct{ mock.Mock }

func (m *MockCheckoutService) Checkout(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Order, error) {
	args := m.Called(ctx, userID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockCheckoutService) CreateOrder(ctx context.Context, caller models.Caller, items []models.OrderItemRequest) (*models.Order, error) {
	args := m.Called(ctx, caller, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockOrderService struct{ mock.Mock }

func (m *MockOrderService) order(args mock.Arguments) (*models.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockOrderService) list(args mock.Arguments) ([]models.Order, int64, error) {
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}
func (m *MockOrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, caller))
}
func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, caller models.Caller) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, status, caller))
}
func (m *MockOrderService) Get(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, caller))
}
func (m *MockOrderService) History(ctx context.Context, orderID uuid.UUID, caller models.Caller) ([]models.OrderStatusAudit, error) {
	args := m.Called(ctx, orderID, caller)
	return args.Get(0).([]models.OrderStatusAudit), args.Error(1)
}
func (m *MockOrderService) ListMine(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	return m.list(m.Called(ctx, caller, page, limit))
}
func (m *MockOrderService) ListForSeller(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	return m.list(m.Called(ctx, caller, page, limit))
}
func (m *MockOrderService) ListAll(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	return m.list(m.Called(ctx, caller, page, limit))
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return m.user(m.Called(ctx, req))
}
func (m *MockUserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResponse), args.Error(1)
}
func (m *MockUserService) Get(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.User, error) {
	return m.user(m.Called(ctx, id, caller))
}
func (m *MockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProfileRequest) (*models.User, error) {
	return m.user(m.Called(ctx, id, caller, req))
}
func (m *MockUserService) Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error {
	return m.Called(ctx, id, caller).Error(0)
}
func (m *MockUserService) ChangePassword(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.ChangePasswordRequest) error {
	return m.Called(ctx, id, caller, req).Error(0)
}
func (m *MockUserService) EnsureActive(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
