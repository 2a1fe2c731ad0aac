package publisher

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/inventory/dto"
)

type capture struct {
	key   string
	value interface{}
}

func (c *capture) PublishJSON(_ context.Context, key string, value interface{}) error {
	c.key, c.value = key, value
	return nil
}

func TestPublishStockAdjustedKeysByProduct(t *testing.T) {
	c := &capture{}
	event := &dto.StockAdjustedEvent{
		EventType: dto.StockAdjustedEventType,
		ProductID: 17,
		NewStock:  decimal.NewFromInt(3),
	}
	if err := NewKafkaPublisher(c).PublishStockAdjusted(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	if c.key != "17" {
		t.Errorf("key = %q", c.key)
	}
	if c.value != event {
		t.Errorf("value = %v", c.value)
	}
}
