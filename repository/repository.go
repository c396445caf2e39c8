package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Templasan/MarketPlacer/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStatusChanged means the order no longer had the expected status when updated.
	ErrStatusChanged = errors.New("order status changed concurrently")
	// ErrConcurrentUpdate means Postgres aborted the transaction on a deadlock or
	// serialization failure; nothing was written.
	ErrConcurrentUpdate = errors.New("transaction aborted by a concurrent update")
)

// Store groups the repositories that must share a transaction.
type Store interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Users() UserRepository
	Audits() AuditRepository
	// WithinTransaction runs fn against a Store bound to one transaction.
	// fn returning an error rolls back every write made through tx.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// FindByIDForUpdate also locks the product row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	Search(ctx context.Context, filter models.ProductFilter, page, pageSize int) ([]models.Product, int64, error)
	// Update writes the editable columns. Stock is never written here.
	Update(ctx context.Context, product *models.Product) error
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	// AdjustStock adds delta to stock only if the result stays non-negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
	FindActiveBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	LatestByCategory(ctx context.Context, category string, limit int) ([]models.Product, error)
}

type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// FindByUserIDForUpdate also locks the cart row until the transaction ends.
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateStatus moves the order from one status to another, failing with
	// ErrStatusChanged if it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry *models.OrderStatusAudit) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusAudit, error)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "duplicate key"),
		strings.Contains(err.Error(), "unique constraint"):
		return ErrDuplicate
	}
	return err
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
