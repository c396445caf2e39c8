package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendente  OrderStatus = "Pendente"
	OrderStatusPago      OrderStatus = "Pago"
	OrderStatusEnviado   OrderStatus = "Enviado"
	OrderStatusEntregue  OrderStatus = "Entregue"
	OrderStatusCancelado OrderStatus = "Cancelado"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendente: {OrderStatusPago, OrderStatusCancelado},
	OrderStatusPago:     {OrderStatusEnviado, OrderStatusCancelado},
	OrderStatusEnviado:  {OrderStatusEntregue},
}

// ParseOrderStatus accepts the canonical status names, case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range []OrderStatus{
		OrderStatusPendente, OrderStatusPago, OrderStatusEnviado, OrderStatusEntregue, OrderStatusCancelado,
	} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Status    OrderStatus `gorm:"type:varchar(20);not null;default:'Pendente';index" json:"status"`
	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// Total is always derived from the frozen line prices.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusAudit rows are append-only.
type OrderStatusAudit struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	OldStatus OrderStatus `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus OrderStatus `gorm:"type:varchar(20);not null" json:"new_status"`
	ActorID   uuid.UUID   `gorm:"type:uuid;not null" json:"actor_id"`
	ActorRole Role        `gorm:"type:varchar(20);not null" json:"actor_role"`
	At        time.Time   `gorm:"not null;index" json:"at"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	Order
	Total decimal.Decimal `json:"total"`
}

func NewOrderResponse(o Order) OrderResponse {
	return OrderResponse{Order: o, Total: o.Total()}
}

// OrderStatusEvent is published after every committed status change.
type OrderStatusEvent struct {
	EventType string          `json:"event_type"`
	OrderID   string          `json:"order_id"`
	BuyerID   string          `json:"buyer_id"`
	OldStatus string          `json:"old_status,omitempty"`
	NewStatus string          `json:"new_status"`
	ActorID   string          `json:"actor_id"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}
