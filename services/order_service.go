package services

import (
	"bytes"
	"context"
	"errors"
	"sort"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/events"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultOrderLimit = 10
	maxOrderLimit     = 100
)

type OrderService interface {
	// ConfirmPayment decrements stock for every line and moves the order to Pago,
	// atomically.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, caller models.Caller) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID, caller models.Caller) ([]models.OrderStatusAudit, error)
	ListMine(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error)
	ListForSeller(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error)
	ListAll(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error)
}

type orderServiceImpl struct {
	store    repository.Store
	recorder *statusRecorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewOrderService(store repository.Store, publisher events.Publisher, m *metrics.Metrics, clock Clock, logger *zap.Logger) OrderService {
	return &orderServiceImpl{
		store:    store,
		recorder: newStatusRecorder(store, publisher, m, clock, logger),
		metrics:  m,
		logger:   logger,
	}
}

func (s *orderServiceImpl) load(ctx context.Context, repo repository.OrderRepository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderServiceImpl) productsOf(ctx context.Context, tx repository.Store, order *models.Order) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := tx.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// stockOrder returns the items sorted by product id. Stock rows are always
// locked in this order.
func stockOrder(items []models.OrderItem) []models.OrderItem {
	sorted := append([]models.OrderItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]) < 0
	})
	return sorted
}

func sellsInOrder(products map[uuid.UUID]models.Product, sellerID uuid.UUID) bool {
	for _, p := range products {
		if p.SellerID == sellerID {
			return true
		}
	}
	return false
}

func (s *orderServiceImpl) ConfirmPayment(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.load(ctx, tx.Orders(), orderID)
		if err != nil {
			return err
		}
		if err := RequireOwner(order.BuyerID, caller); err != nil {
			return err
		}
		if order.Status != models.OrderStatusPendente {
			return apperrors.Validation("order is not pending payment")
		}

		products, err := s.productsOf(ctx, tx, order)
		if err != nil {
			return err
		}
		for _, it := range stockOrder(order.Items) {
			name := it.ProductID.String()
			if p, ok := products[it.ProductID]; ok {
				name = p.Name
			}
			err := tx.Products().AdjustStock(ctx, it.ProductID, -it.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				s.metrics.StockConflict()
				return apperrors.Conflict("stock ran out for %s during payment", name)
			}
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.IO("technical error: product data not loaded", err)
			}
			if err != nil {
				return err
			}
		}

		err = tx.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPendente, models.OrderStatusPago)
		if errors.Is(err, repository.ErrStatusChanged) {
			return apperrors.Validation("order is not pending payment")
		}
		if err != nil {
			return err
		}
		order.Status = models.OrderStatusPago
		return nil
	})
	if err != nil {
		s.metrics.Payment("failed")
		return nil, storageFailure(s.logger, "payment confirmation failed", err)
	}

	s.metrics.Payment("ok")
	s.logger.Info("Payment confirmed",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("total", order.Total().StringFixed(2)),
	)
	s.recorder.record(ctx, order, models.OrderStatusPendente, models.OrderStatusPago, caller)
	return order, nil
}

// UpdateStatus applies a manual transition. Admins may move any order; sellers
// only orders containing one of their products. Pago is reachable only through
// ConfirmPayment, and cancelling a paid order returns its stock.
func (s *orderServiceImpl) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, caller models.Caller) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperrors.Validation("unknown order status %q", status)
	}

	var (
		order *models.Order
		prev  models.OrderStatus
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = s.load(ctx, tx.Orders(), orderID)
		if err != nil {
			return err
		}
		products, err := s.productsOf(ctx, tx, order)
		if err != nil {
			return err
		}

		switch caller.Role {
		case models.RoleAdmin:
		case models.RoleVendedor:
			if !sellsInOrder(products, caller.ID) {
				return apperrors.Forbidden("you do not sell any product in this order")
			}
		default:
			return apperrors.Forbidden("only sellers and admins can update order status")
		}

		if order.Status.IsTerminal() {
			return apperrors.Validation("order is already %s", order.Status)
		}
		if next == models.OrderStatusPago {
			return apperrors.Validation("payment must be confirmed through the payment endpoint")
		}
		if !order.Status.CanTransitionTo(next) {
			return apperrors.Validation("illegal status transition from %s to %s", order.Status, next)
		}

		prev = order.Status
		err = tx.Orders().UpdateStatus(ctx, order.ID, prev, next)
		if errors.Is(err, repository.ErrStatusChanged) {
			return apperrors.Conflict("order status changed concurrently, retry")
		}
		if err != nil {
			return err
		}

		if prev == models.OrderStatusPago && next == models.OrderStatusCancelado {
			for _, it := range stockOrder(order.Items) {
				if err := tx.Products().AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		order.Status = next
		return nil
	})
	if err != nil {
		return nil, storageFailure(s.logger, "failed to update order status", err)
	}

	s.recorder.record(ctx, order, prev, next, caller)
	return order, nil
}

// authorizeRead allows the buyer, admins, and sellers with a product in the order.
func (s *orderServiceImpl) authorizeRead(ctx context.Context, order *models.Order, caller models.Caller) error {
	if CanMutate(order.BuyerID, caller) {
		return nil
	}
	if caller.Role == models.RoleVendedor {
		products, err := s.productsOf(ctx, s.store, order)
		if err != nil {
			return err
		}
		if sellsInOrder(products, caller.ID) {
			return nil
		}
	}
	return apperrors.Forbidden("you do not have access to this order")
}

func (s *orderServiceImpl) Get(ctx context.Context, orderID uuid.UUID, caller models.Caller) (*models.Order, error) {
	order, err := s.load(ctx, s.store.Orders(), orderID)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load order", err)
	}
	if err := s.authorizeRead(ctx, order, caller); err != nil {
		return nil, storageFailure(s.logger, "failed to authorize order read", err)
	}
	return order, nil
}

func (s *orderServiceImpl) History(ctx context.Context, orderID uuid.UUID, caller models.Caller) ([]models.OrderStatusAudit, error) {
	if _, err := s.Get(ctx, orderID, caller); err != nil {
		return nil, err
	}
	entries, err := s.store.Audits().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load order history", err)
	}
	if entries == nil {
		entries = []models.OrderStatusAudit{}
	}
	return entries, nil
}

func (s *orderServiceImpl) ListMine(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	page, limit = clampPage(page, limit, defaultOrderLimit, maxOrderLimit)
	orders, total, err := s.store.Orders().FindByBuyer(ctx, caller.ID, page, limit)
	if err != nil {
		return nil, 0, storageFailure(s.logger, "failed to list orders", err)
	}
	return orders, total, nil
}

func (s *orderServiceImpl) ListForSeller(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	if caller.Role != models.RoleVendedor && caller.Role != models.RoleAdmin {
		return nil, 0, apperrors.Forbidden("only sellers can list seller orders")
	}
	page, limit = clampPage(page, limit, defaultOrderLimit, maxOrderLimit)
	orders, total, err := s.store.Orders().FindBySeller(ctx, caller.ID, page, limit)
	if err != nil {
		return nil, 0, storageFailure(s.logger, "failed to list seller orders", err)
	}
	return orders, total, nil
}

func (s *orderServiceImpl) ListAll(ctx context.Context, caller models.Caller, page, limit int) ([]models.Order, int64, error) {
	if !caller.IsAdmin() {
		return nil, 0, apperrors.Forbidden("admin role required")
	}
	page, limit = clampPage(page, limit, defaultOrderLimit, maxOrderLimit)
	orders, total, err := s.store.Orders().FindAll(ctx, page, limit)
	if err != nil {
		return nil, 0, storageFailure(s.logger, "failed to list orders", err)
	}
	return orders, total, nil
}
