// Package memory is an in-process Store. Every call, and every transaction as a
// whole, runs under one mutex, so transactions are fully serialized.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
)

type dataset struct {
	users    map[uuid.UUID]models.User
	products map[uuid.UUID]models.Product
	carts    map[uuid.UUID]models.Cart // keyed by user id
	orders   map[uuid.UUID]models.Order
	audits   []models.OrderStatusAudit
}

func newDataset() *dataset {
	return &dataset{
		users:    make(map[uuid.UUID]models.User),
		products: make(map[uuid.UUID]models.Product),
		carts:    make(map[uuid.UUID]models.Cart),
		orders:   make(map[uuid.UUID]models.Order),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.carts {
		v.Items = append([]models.CartItem(nil), v.Items...)
		c.carts[k] = v
	}
	for k, v := range d.orders {
		v.Items = append([]models.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	c.audits = append([]models.OrderStatusAudit(nil), d.audits...)
	return c
}

type Store struct {
	mu   *sync.Mutex // nil inside a transaction; the outer store already holds it
	data *dataset
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newDataset()}
}

func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }
func (s *Store) Carts() repository.CartRepository       { return &cartRepo{s: s} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepo{s: s} }
func (s *Store) Users() repository.UserRepository       { return &userRepo{s: s} }
func (s *Store) Audits() repository.AuditRepository     { return &auditRepo{s: s} }

// WithinTransaction runs fn on a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.mu == nil {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Store{data: s.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func paginate(n, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

func sortOrdersNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() < orders[j].ID.String()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
