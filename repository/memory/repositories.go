package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	defer r.s.lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := r.s.data.products[p.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.data.products[p.ID] = *p
	return nil
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	defer r.s.lock()()
	var out []models.Product
	for _, id := range ids {
		if p, ok := r.s.data.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func matches(p models.Product, f models.ProductFilter) bool {
	if !p.Active {
		return false
	}
	if name := strings.TrimSpace(f.Name); name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

func (r *productRepo) Search(ctx context.Context, f models.ProductFilter, page, pageSize int) ([]models.Product, int64, error) {
	defer r.s.lock()()
	var hits []models.Product
	for _, p := range r.s.data.products {
		if matches(p, f) {
			hits = append(hits, p)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Name == hits[j].Name {
			return hits[i].ID.String() < hits[j].ID.String()
		}
		return hits[i].Name < hits[j].Name
	})
	start, end := paginate(len(hits), page, pageSize)
	return hits[start:end], int64(len(hits)), nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	defer r.s.lock()()
	stored, ok := r.s.data.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *p
	updated.Stock = stored.Stock
	r.s.data.products[p.ID] = updated
	return nil
}

func (r *productRepo) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = stock
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	defer r.s.lock()()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return repository.ErrInsufficientStock
	}
	p.Stock += delta
	r.s.data.products[id] = p
	return nil
}

func (r *productRepo) FindActiveBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	defer r.s.lock()()
	var out []models.Product
	for _, p := range r.s.data.products {
		if p.Active && p.SellerID == sellerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *productRepo) LatestByCategory(ctx context.Context, category string, limit int) ([]models.Product, error) {
	defer r.s.lock()()
	var out []models.Product
	for _, p := range r.s.data.products {
		if p.Active && p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type cartRepo struct{ s *Store }

func (r *cartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer r.s.lock()()
	c, ok := r.s.data.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	sort.SliceStable(c.Items, func(i, j int) bool {
		if c.Items[i].AddedAt.Equal(c.Items[j].AddedAt) {
			return c.Items[i].Position < c.Items[j].Position
		}
		return c.Items[i].AddedAt.Before(c.Items[j].AddedAt)
	})
	return &c, nil
}

func (r *cartRepo) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *cartRepo) Create(ctx context.Context, c *models.Cart) error {
	defer r.s.lock()()
	if _, ok := r.s.data.carts[c.UserID]; ok {
		return repository.ErrDuplicate
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	stored := *c
	stored.Items = nil
	r.s.data.carts[c.UserID] = stored
	return nil
}

func (r *cartRepo) byID(cartID uuid.UUID) (models.Cart, bool) {
	for _, c := range r.s.data.carts {
		if c.ID == cartID {
			return c, true
		}
	}
	return models.Cart{}, false
}

func (r *cartRepo) SaveItem(ctx context.Context, item *models.CartItem) error {
	defer r.s.lock()()
	c, ok := r.byID(item.CartID)
	if !ok {
		return repository.ErrNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	items := append([]models.CartItem(nil), c.Items...)
	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = *item
			replaced = true
			break
		}
		if items[i].ProductID == item.ProductID {
			return repository.ErrDuplicate
		}
	}
	if !replaced {
		items = append(items, *item)
	}
	c.Items = items
	r.s.data.carts[c.UserID] = c
	return nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	defer r.s.lock()()
	c, ok := r.byID(cartID)
	if !ok {
		return nil
	}
	items := make([]models.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	c.Items = items
	r.s.data.carts[c.UserID] = c
	return nil
}

func (r *cartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	defer r.s.lock()()
	c, ok := r.byID(cartID)
	if !ok {
		return nil
	}
	c.Items = nil
	r.s.data.carts[c.UserID] = c
	return nil
}

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	defer r.s.lock()()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if _, ok := r.s.data.orders[o.ID]; ok {
		return repository.ErrDuplicate
	}
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]models.OrderItem(nil), o.Items...)
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	defer r.s.lock()()
	o, ok := r.s.data.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusChanged
	}
	o.Status = to
	r.s.data.orders[id] = o
	return nil
}

func (r *orderRepo) list(page, limit int, keep func(models.Order) bool) ([]models.Order, int64, error) {
	defer r.s.lock()()
	var hits []models.Order
	for _, o := range r.s.data.orders {
		if keep(o) {
			o.Items = append([]models.OrderItem(nil), o.Items...)
			hits = append(hits, o)
		}
	}
	sortOrdersNewestFirst(hits)
	start, end := paginate(len(hits), page, limit)
	return hits[start:end], int64(len(hits)), nil
}

func (r *orderRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return r.list(page, limit, func(o models.Order) bool { return o.BuyerID == buyerID })
}

func (r *orderRepo) FindBySeller(ctx context.Context, sellerID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	return r.list(page, limit, func(o models.Order) bool {
		for _, it := range o.Items {
			if p, ok := r.s.data.products[it.ProductID]; ok && p.SellerID == sellerID {
				return true
			}
		}
		return false
	})
}

func (r *orderRepo) FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	return r.list(page, limit, func(models.Order) bool { return true })
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	email = strings.TrimSpace(email)
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Update(ctx context.Context, u *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.data.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	r.s.data.users[u.ID] = *u
	return nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Append(ctx context.Context, e *models.OrderStatusAudit) error {
	defer r.s.lock()()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.s.data.audits = append(r.s.data.audits, *e)
	return nil
}

func (r *auditRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusAudit, error) {
	defer r.s.lock()()
	var out []models.OrderStatusAudit
	for _, e := range r.s.data.audits {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}
