package publisher

import (
	"context"
	"strconv"

	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
)

// JSONProducer is satisfied by *broker.Producer.
type JSONProducer interface {
	PublishJSON(ctx context.Context, key string, value interface{}) error
}

// KafkaPublisher emits StockAdjusted events keyed by product id, so consumers
// see one product's adjustments in commit order.
type KafkaPublisher struct {
	producer JSONProducer
}

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(p JSONProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) PublishStockAdjusted(ctx context.Context, event *dto.StockAdjustedEvent) error {
	return p.producer.PublishJSON(ctx, strconv.FormatInt(event.ProductID, 10), event)
}
