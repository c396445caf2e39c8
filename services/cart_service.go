package services

import (
	"context"
	"errors"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID, caller models.Caller) error
	Clear(ctx context.Context, userID uuid.UUID, caller models.Caller) error
	View(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.CartView, error)
}

type cartServiceImpl struct {
	store  repository.Store
	locks  *CartLocks
	clock  Clock
	logger *zap.Logger
}

func NewCartService(store repository.Store, locks *CartLocks, clock Clock, logger *zap.Logger) CartService {
	return &cartServiceImpl{store: store, locks: locks, clock: clock, logger: logger}
}

func (s *cartServiceImpl) GetOrCreate(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Cart, error) {
	if err := RequireOwner(userID, caller); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	var cart *models.Cart
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		cart, err = s.loadOrCreate(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load cart", err)
	}
	return cart, nil
}

func (s *cartServiceImpl) loadOrCreate(ctx context.Context, tx repository.Store, userID uuid.UUID) (*models.Cart, error) {
	cart, err := tx.Carts().FindByUserIDForUpdate(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	now := s.clock.Now()
	cart = &models.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := tx.Carts().Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error {
	if err := RequireOwner(userID, caller); err != nil {
		return err
	}
	if quantity < models.MinCartQuantity || quantity > models.MaxCartQuantity {
		return apperrors.Validation("quantity must be between %d and %d", models.MinCartQuantity, models.MaxCartQuantity)
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("product not found")
		}
		if err != nil {
			return err
		}
		if !product.Active {
			return apperrors.Validation("product %s is no longer available", product.Name)
		}

		cart, err := s.loadOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		if idx := cart.FindItem(productID); idx >= 0 {
			item := cart.Items[idx]
			item.Quantity += quantity
			return tx.Carts().SaveItem(ctx, &item)
		}

		return tx.Carts().SaveItem(ctx, &models.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Position:  cart.NextPosition(),
			AddedAt:   s.clock.Now(),
		})
	})
	if err != nil {
		return storageFailure(s.logger, "failed to add cart item", err)
	}
	return nil
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (s *cartServiceImpl) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int, caller models.Caller) error {
	if err := RequireOwner(userID, caller); err != nil {
		return err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			if quantity <= 0 {
				return nil
			}
			return apperrors.NotFound("item not in cart")
		}
		if err != nil {
			return err
		}

		if quantity <= 0 {
			return tx.Carts().DeleteItem(ctx, cart.ID, productID)
		}
		idx := cart.FindItem(productID)
		if idx < 0 {
			return apperrors.NotFound("item not in cart")
		}
		item := cart.Items[idx]
		item.Quantity = quantity
		return tx.Carts().SaveItem(ctx, &item)
	})
	if err != nil {
		return storageFailure(s.logger, "failed to update cart item", err)
	}
	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, productID uuid.UUID, caller models.Caller) error {
	return s.SetQuantity(ctx, userID, productID, 0, caller)
}

func (s *cartServiceImpl) Clear(ctx context.Context, userID uuid.UUID, caller models.Caller) error {
	if err := RequireOwner(userID, caller); err != nil {
		return err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Carts().ClearItems(ctx, cart.ID)
	})
	if err != nil {
		return storageFailure(s.logger, "failed to clear cart", err)
	}
	return nil
}

// View prices every line at the product's current price. Lines whose product is
// missing or inactive are shown with a placeholder name and zero price.
func (s *cartServiceImpl) View(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.CartView, error) {
	if err := RequireOwner(userID, caller); err != nil {
		return nil, err
	}

	view := &models.CartView{UserID: userID, Items: []models.CartLineView{}, Total: decimal.Zero}
	cart, err := s.store.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load cart", err)
	}
	view.CartID = &cart.ID

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.store.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load cart products", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, it := range cart.Items {
		line := models.CartLineView{
			ProductID: it.ProductID,
			Name:      models.MissingProductName,
			Quantity:  it.Quantity,
			UnitPrice: decimal.Zero,
			AddedAt:   it.AddedAt,
		}
		if p, ok := byID[it.ProductID]; ok && p.Active {
			line.Name = p.Name
			line.UnitPrice = p.Price
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		view.Total = view.Total.Add(line.Subtotal)
		view.Items = append(view.Items, line)
	}
	return view, nil
}
