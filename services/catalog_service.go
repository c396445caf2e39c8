package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/cache"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// ImagePresigner issues direct-upload URLs for product images.
type ImagePresigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, time.Duration, error)
}

type CatalogService interface {
	Create(ctx context.Context, caller models.Caller, req *models.CreateProductRequest) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Search(ctx context.Context, filter models.ProductFilter, page, pageSize int) (*models.ProductPage, error)
	Update(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProductRequest) (*models.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	Categories() []string
	ImageUploadURL(ctx context.Context, id uuid.UUID, caller models.Caller, filename, contentType string) (*models.ImageUploadURL, error)
}

type catalogServiceImpl struct {
	store     repository.Store
	homeCache cache.Cache
	presigner ImagePresigner
	validate  *validator.Validate
	clock     Clock
	logger    *zap.Logger
}

// NewCatalogService wires the catalog. homeCache and presigner may be nil.
func NewCatalogService(store repository.Store, homeCache cache.Cache, presigner ImagePresigner, clock Clock, logger *zap.Logger) CatalogService {
	return &catalogServiceImpl{
		store:     store,
		homeCache: homeCache,
		presigner: presigner,
		validate:  validator.New(),
		clock:     clock,
		logger:    logger,
	}
}

func (s *catalogServiceImpl) validateStruct(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Validation("invalid %s: failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return apperrors.Validation("invalid request")
	}
	return nil
}

func validatePrice(price decimal.Decimal) (decimal.Decimal, error) {
	rounded := price.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, apperrors.Validation("price must be greater than zero")
	}
	return rounded, nil
}

func validateCategory(category string) error {
	if !models.IsAllowedCategory(category) {
		return apperrors.Validation("category %q is not allowed", category)
	}
	return nil
}

func (s *catalogServiceImpl) Create(ctx context.Context, caller models.Caller, req *models.CreateProductRequest) (*models.Product, error) {
	if caller.Role != models.RoleVendedor && caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only sellers can list products")
	}
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("name is required")
	}
	price, err := validatePrice(req.Price)
	if err != nil {
		return nil, err
	}
	if err := validateCategory(req.Category); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, apperrors.Validation("stock cannot be negative")
	}

	now := s.clock.Now()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Active:      true,
		SellerID:    caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, storageFailure(s.logger, "failed to create product", err)
	}

	s.invalidateHome(ctx)
	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", caller.ID.String()),
		zap.String("category", product.Category),
	)
	return product, nil
}

// Get returns the product whether or not it is active.
func (s *catalogServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("product not found")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load product", err)
	}
	return p, nil
}

func (s *catalogServiceImpl) Search(ctx context.Context, filter models.ProductFilter, page, pageSize int) (*models.ProductPage, error) {
	page, pageSize = clampPage(page, pageSize, defaultPageSize, maxPageSize)
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, apperrors.Validation("min price cannot exceed max price")
	}

	items, total, err := s.store.Products().Search(ctx, filter, page, pageSize)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to search products", err)
	}
	if items == nil {
		items = []models.Product{}
	}
	return &models.ProductPage{
		Items:      items,
		TotalItems: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// loadOwned reads the product for a mutation; inside a transaction the row stays
// locked so concurrent stock adjustments wait for the write.
func (s *catalogServiceImpl) loadOwned(ctx context.Context, find func(context.Context, uuid.UUID) (*models.Product, error), id uuid.UUID, caller models.Caller) (*models.Product, error) {
	p, err := find(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("product not found")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load product", err)
	}
	if err := RequireOwner(p.SellerID, caller); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *catalogServiceImpl) Update(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProductRequest) (*models.Product, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		p, err := s.loadOwned(ctx, tx.Products().FindByIDForUpdate, id, caller)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperrors.Validation("name is required")
			}
			p.Name = name
		}
		if req.Description != nil {
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			price, err := validatePrice(*req.Price)
			if err != nil {
				return err
			}
			p.Price = price
		}
		if req.Category != nil {
			if err := validateCategory(*req.Category); err != nil {
				return err
			}
			p.Category = *req.Category
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				return apperrors.Validation("stock cannot be negative")
			}
			p.Stock = *req.Stock
		}
		if req.ImageURL != nil {
			p.ImageURL = *req.ImageURL
		}
		p.UpdatedAt = s.clock.Now()

		if err := tx.Products().Update(ctx, p); err != nil {
			return err
		}
		if req.Stock != nil {
			if err := tx.Products().SetStock(ctx, p.ID, p.Stock); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, storageFailure(s.logger, "failed to update product", err)
	}

	s.invalidateHome(ctx)
	s.logger.Info("Product updated", zap.String("product_id", id.String()), zap.String("actor_id", caller.ID.String()))
	return updated, nil
}

func (s *catalogServiceImpl) Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error {
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		p, err := s.loadOwned(ctx, tx.Products().FindByIDForUpdate, id, caller)
		if err != nil {
			return err
		}
		if !p.Active {
			return nil
		}
		p.Active = false
		p.UpdatedAt = s.clock.Now()
		return tx.Products().Update(ctx, p)
	})
	if err != nil {
		return storageFailure(s.logger, "failed to deactivate product", err)
	}

	s.invalidateHome(ctx)
	s.logger.Info("Product deactivated", zap.String("product_id", id.String()), zap.String("actor_id", caller.ID.String()))
	return nil
}

func (s *catalogServiceImpl) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	err := s.store.Products().AdjustStock(ctx, id, delta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("product not found")
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.Conflict("stock cannot go below zero")
	}
	return storageFailure(s.logger, "failed to adjust stock", err)
}

func (s *catalogServiceImpl) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	products, err := s.store.Products().FindActiveBySeller(ctx, sellerID)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to list seller products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *catalogServiceImpl) Categories() []string {
	out := make([]string, len(models.AllowedCategories))
	copy(out, models.AllowedCategories)
	return out
}

var allowedImageExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

func (s *catalogServiceImpl) ImageUploadURL(ctx context.Context, id uuid.UUID, caller models.Caller, filename, contentType string) (*models.ImageUploadURL, error) {
	if s.presigner == nil {
		return nil, apperrors.IO("image uploads are not configured", nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowedImageExt[ext]
	if !ok {
		return nil, apperrors.Validation("unsupported image type %q", ext)
	}
	if contentType == "" {
		contentType = expected
	}

	if _, err := s.loadOwned(ctx, s.store.Products().FindByID, id, caller); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%s/%s%s", id, uuid.NewString(), ext)
	url, headers, expiry, err := s.presigner.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to presign image upload", err)
	}
	return &models.ImageUploadURL{URL: url, Key: key, Headers: headers, ExpiresIn: int64(expiry.Seconds())}, nil
}

func (s *catalogServiceImpl) invalidateHome(ctx context.Context) {
	if s.homeCache == nil {
		return
	}
	if err := s.homeCache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate home cache", zap.Error(err))
	}
}
