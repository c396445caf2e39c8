package services

import (
	"context"
	"errors"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/events"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	// Checkout turns the user's cart into a pending order and empties the cart.
	Checkout(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Order, error)
	// CreateOrder places a pending order for the caller without going through a cart.
	CreateOrder(ctx context.Context, caller models.Caller, items []models.OrderItemRequest) (*models.Order, error)
}

type checkoutServiceImpl struct {
	store    repository.Store
	locks    *CartLocks
	recorder *statusRecorder
	metrics  *metrics.Metrics
	clock    Clock
	logger   *zap.Logger
}

func NewCheckoutService(store repository.Store, locks *CartLocks, publisher events.Publisher, m *metrics.Metrics, clock Clock, logger *zap.Logger) CheckoutService {
	return &checkoutServiceImpl{
		store:    store,
		locks:    locks,
		recorder: newStatusRecorder(store, publisher, m, clock, logger),
		metrics:  m,
		clock:    clock,
		logger:   logger,
	}
}

type orderLine struct {
	productID uuid.UUID
	quantity  int
}

// buildOrder validates every line against current product data before anything is
// written, and freezes unit prices. missingIsTechnical selects how an absent
// product is reported.
func (s *checkoutServiceImpl) buildOrder(ctx context.Context, tx repository.Store, buyerID uuid.UUID, lines []orderLine, missingIsTechnical bool) (*models.Order, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.productID)
	}
	products, err := tx.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &models.Order{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		Status:    models.OrderStatusPendente,
		CreatedAt: s.clock.Now(),
	}
	for _, l := range lines {
		p, ok := byID[l.productID]
		if !ok {
			if missingIsTechnical {
				return nil, apperrors.IO("technical error: product data not loaded", nil)
			}
			return nil, apperrors.NotFound("product %s not found", l.productID)
		}
		if !p.Active {
			return nil, apperrors.Validation("product %s is no longer available", p.Name)
		}
		if p.Stock < l.quantity {
			s.metrics.StockConflict()
			return nil, apperrors.Conflict("insufficient stock for %s (available: %d)", p.Name, p.Stock)
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: p.ID,
			Quantity:  l.quantity,
			UnitPrice: p.Price,
		})
	}
	return order, nil
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID uuid.UUID, caller models.Caller) (*models.Order, error) {
	if err := RequireOwner(userID, caller); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	var order *models.Order
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Validation("empty cart")
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperrors.Validation("empty cart")
		}

		lines := make([]orderLine, 0, len(cart.Items))
		for _, it := range cart.Items {
			lines = append(lines, orderLine{productID: it.ProductID, quantity: it.Quantity})
		}
		order, err = s.buildOrder(ctx, tx, userID, lines, true)
		if err != nil {
			return err
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Carts().ClearItems(ctx, cart.ID)
	})
	if err != nil {
		s.metrics.Checkout("failed")
		return nil, storageFailure(s.logger, "checkout failed", err)
	}

	s.metrics.Checkout("ok")
	s.logger.Info("Order created from cart",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", userID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total().StringFixed(2)),
	)
	s.recorder.record(ctx, order, "", models.OrderStatusPendente, caller)
	return order, nil
}

func (s *checkoutServiceImpl) CreateOrder(ctx context.Context, caller models.Caller, items []models.OrderItemRequest) (*models.Order, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}
	merged := make(map[uuid.UUID]int, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, apperrors.Validation("quantity must be at least 1")
		}
		if _, seen := merged[it.ProductID]; !seen {
			lines = append(lines, orderLine{productID: it.ProductID})
		}
		merged[it.ProductID] += it.Quantity
	}
	for i := range lines {
		lines[i].quantity = merged[lines[i].productID]
	}

	var order *models.Order
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.buildOrder(ctx, tx, caller.ID, lines, false)
		if err != nil {
			return err
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, storageFailure(s.logger, "failed to create order", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", caller.ID.String()),
		zap.String("total", order.Total().StringFixed(2)),
	)
	s.recorder.record(ctx, order, "", models.OrderStatusPendente, caller)
	return order, nil
}
