package services

import (
	"context"
	"time"

	"github.com/Templasan/MarketPlacer/events"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusRecorder writes the audit row and publishes the event for a status change
// that has already been committed. Failures are logged and swallowed.
type statusRecorder struct {
	audits    repository.AuditRepository
	publisher events.Publisher
	metrics   *metrics.Metrics
	clock     Clock
	logger    *zap.Logger
}

func newStatusRecorder(store repository.Store, publisher events.Publisher, m *metrics.Metrics, clock Clock, logger *zap.Logger) *statusRecorder {
	return &statusRecorder{audits: store.Audits(), publisher: publisher, metrics: m, clock: clock, logger: logger}
}

func (r *statusRecorder) record(ctx context.Context, order *models.Order, from, to models.OrderStatus, caller models.Caller) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	at := r.clock.Now()
	fields := []zap.Field{
		zap.String("order_id", order.ID.String()),
		zap.String("old_status", string(from)),
		zap.String("new_status", string(to)),
		zap.String("actor_id", caller.ID.String()),
		zap.String("actor_role", string(caller.Role)),
	}
	r.logger.Info("Order status changed", fields...)
	r.metrics.StatusChanged(string(to))

	entry := &models.OrderStatusAudit{
		ID:        uuid.New(),
		OrderID:   order.ID,
		OldStatus: from,
		NewStatus: to,
		ActorID:   caller.ID,
		ActorRole: caller.Role,
		At:        at,
	}
	if err := r.audits.Append(ctx, entry); err != nil {
		r.logger.Error("Failed to append order audit entry", append(fields, zap.Error(err))...)
	}

	if r.publisher == nil {
		return
	}
	event := models.OrderStatusEvent{
		EventType: events.EventOrderStatusChanged,
		OrderID:   order.ID.String(),
		BuyerID:   order.BuyerID.String(),
		OldStatus: string(from),
		NewStatus: string(to),
		ActorID:   caller.ID.String(),
		Total:     order.Total(),
		Timestamp: at,
	}
	if err := r.publisher.PublishOrderEvent(ctx, event); err != nil {
		r.logger.Error("Failed to publish order event", append(fields, zap.Error(err))...)
	}
}
