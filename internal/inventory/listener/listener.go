package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/broker"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	OrderCreatedEventType = "OrderCreated"

	// maxAdjustAttempts bounds retries of an order item whose adjustment
	// failed transiently. The reader has already committed the offset.
	maxAdjustAttempts = 3
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type InventoryListener struct {
	reader     MessageReader
	uc         inventory.UseCase
	logger     logger.ZapLogger
	tracer     trace.Tracer
	retryDelay time.Duration
	attempts   int
}

func NewInventoryListener(reader MessageReader, uc inventory.UseCase, log logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		reader:     reader,
		uc:         uc,
		logger:     log,
		tracer:     otel.Tracer("github.com/smartcart/product-service/internal/inventory/listener"),
		retryDelay: time.Second,
		attempts:   maxAdjustAttempts,
	}
}

// Start consumes until ctx is cancelled.
func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("starting order listener")
	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("stopping order listener")
				return
			}
			l.logger.Error("failed to read kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retryDelay):
			}
			continue
		}
		l.processMessage(ctx, msg)
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID      string             `json:"id"`
	StoreID string             `json:"store_id"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (l *InventoryListener) processMessage(ctx context.Context, msg kafka.Message) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		l.logger.Error("failed to unmarshal event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}
	if event.EventType != OrderCreatedEventType {
		return
	}

	ctx, span := l.tracer.Start(broker.ExtractTraceContext(ctx, msg.Headers), "inventory.HandleOrderCreated",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("order.id", event.Payload.ID),
			attribute.Int("order.items", len(event.Payload.Items)),
		))
	defer span.End()

	l.logger.Info("processing OrderCreated event",
		zap.String("order_id", event.Payload.ID),
		zap.Int("items", len(event.Payload.Items)),
	)

	notes := fmt.Sprintf("order %s", event.Payload.ID)
	for _, item := range event.Payload.Items {
		input := &dto.AdjustStockInput{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity.Neg(),
			TransactionType: model.TransactionSale,
			Notes:           &notes,
		}
		if err := l.adjustWithRetry(ctx, input); err != nil {
			l.logger.Error("failed to adjust stock for order item",
				zap.String("order_id", event.Payload.ID),
				zap.Int64("product_id", item.ProductID),
				zap.String("quantity", item.Quantity.String()),
				zap.Error(err),
			)
		}
	}
}

// adjustWithRetry repeats an adjustment that failed with a transient store
// error. A failed attempt rolled back fully, so repeating it cannot double count.
func (l *InventoryListener) adjustWithRetry(ctx context.Context, input *dto.AdjustStockInput) error {
	for attempt := 1; ; attempt++ {
		_, err := l.uc.AdjustStock(ctx, input)
		if err == nil || !errors.Is(err, apperror.ErrTransient) || attempt >= l.attempts {
			return err
		}
		l.logger.Warn("retrying stock adjustment",
			zap.Int64("product_id", input.ProductID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * l.retryDelay):
		}
	}
}
