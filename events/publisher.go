package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Templasan/MarketPlacer/models"
	awspkg "github.com/Templasan/MarketPlacer/pkg/aws"
)

const EventOrderStatusChanged = "order.status_changed"

// Publisher delivers order events after the change has been committed.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderStatusEvent) error
}

type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) PublishOrderEvent(ctx context.Context, event models.OrderStatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, event.EventType, body)
}

// Fanout publishes to every target and joins their errors.
type Fanout []Publisher

func (f Fanout) PublishOrderEvent(ctx context.Context, event models.OrderStatusEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishOrderEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
