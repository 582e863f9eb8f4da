package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/osanhueza/minimarket-backend/pkg/config"
	"github.com/osanhueza/minimarket-backend/pkg/redis"
)

// StockUpdate is the payload emitted whenever a product's stock changes.
type StockUpdate struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// StockAlert is the payload emitted when stock falls to or below the minimum.
type StockAlert struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
}

// Publisher fans stock events out to connected dashboards. Delivery is
// at-most-once; callers must never treat a publish failure as fatal.
type Publisher interface {
	PublishStockUpdate(ctx context.Context, update StockUpdate) error
	PublishStockAlert(ctx context.Context, alert StockAlert) error
}

type redisPublisher struct {
	client *redis.Client
	cfg    config.RealtimeConfig
}

// NewPublisher wires a redis pub/sub backed publisher.
func NewPublisher(client *redis.Client, cfg config.RealtimeConfig) (Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisPublisher{client: client, cfg: cfg}, nil
}

func (p *redisPublisher) PublishStockUpdate(ctx context.Context, update StockUpdate) error {
	return p.publish(ctx, p.cfg.StockUpdatedChannel, update)
}

func (p *redisPublisher) PublishStockAlert(ctx context.Context, alert StockAlert) error {
	return p.publish(ctx, p.cfg.StockAlertChannel, alert)
}

func (p *redisPublisher) publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", channel, err)
	}

	if p.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PublishTimeout)
		defer cancel()
	}

	if err := p.client.Publish(ctx, channel, body); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}
	return nil
}

// PublishUpdates emits a batch of stock updates, aggregating failures so one
// bad publish does not hide the rest.
func PublishUpdates(ctx context.Context, pub Publisher, updates []StockUpdate) error {
	if pub == nil {
		return nil
	}
	var errs error
	for _, update := range updates {
		errs = multierr.Append(errs, pub.PublishStockUpdate(ctx, update))
	}
	return errs
}

// NoopPublisher drops every event. Useful in tests and tooling.
type NoopPublisher struct{}

func (NoopPublisher) PublishStockUpdate(ctx context.Context, update StockUpdate) error {
	return nil
}

func (NoopPublisher) PublishStockAlert(ctx context.Context, alert StockAlert) error {
	return nil
}
