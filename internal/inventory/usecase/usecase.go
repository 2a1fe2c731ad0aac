package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/cache"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName     = "github.com/smartcart/product-service/internal/inventory"
	publishTimeout = 3 * time.Second
)

type inventoryUseCase struct {
	repo              inventory.Repository
	cache             cache.ProductCache
	publisher         inventory.EventPublisher
	logger            logger.ZapLogger
	tracer            trace.Tracer
	invalidateTimeout time.Duration
	now               func() time.Time
}

// NewInventoryUseCase builds the stock ledger engine. publisher may be nil.
func NewInventoryUseCase(repo inventory.Repository, c cache.ProductCache, publisher inventory.EventPublisher, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:              repo,
		cache:             c,
		publisher:         publisher,
		logger:            log,
		tracer:            otel.Tracer(tracerName),
		invalidateTimeout: cache.DefaultInvalidateTimeout,
		now:               time.Now,
	}
}

// AdjustStock moves stock by a signed quantity and records the ledger entry
// in the same unit of work. The cache entry is invalidated only after the
// commit; its failure never fails the adjustment.
func (uc *inventoryUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.AdjustStockResult, error) {
	ctx, span := uc.tracer.Start(ctx, "inventory.AdjustStock", trace.WithAttributes(
		attribute.Int64("product.id", input.ProductID),
		attribute.String("stock.transaction_type", string(input.TransactionType)),
		attribute.String("stock.quantity", input.Quantity.String()),
	))
	defer span.End()

	if err := input.Validate(); err != nil {
		span.SetStatus(codes.Error, "validation")
		return nil, err
	}

	var (
		result dto.AdjustStockResult
		event  dto.StockAdjustedEvent
	)
	err := uc.repo.WithProductLock(ctx, input.ProductID, func(tx inventory.StockTx) error {
		p := tx.Product()
		previous := p.StockQuantity
		next := previous.Add(input.Quantity)
		if next.IsNegative() {
			return apperror.InsufficientStock("AdjustStock",
				"Insufficient stock. Available: %s, requested: %s", previous.String(), input.Quantity.Abs().String())
		}
		if !model.FitsStockColumn(next) {
			return apperror.Validation("AdjustStock", "Validation error", "resulting stock must be below 1000000000")
		}

		now := uc.now().UTC()
		if err := tx.SetStock(ctx, next, now); err != nil {
			return err
		}
		entry := &model.StockTransaction{
			TransactionID:   uuid.New().String(),
			ProductID:       p.ProductID,
			TransactionType: input.TransactionType,
			Quantity:        input.Quantity,
			PreviousStock:   previous,
			NewStock:        next,
			Notes:           input.Notes,
			CreatedAt:       now,
		}
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		p.StockQuantity = next
		result = dto.AdjustStockResult{
			ProductID:     p.ProductID,
			PreviousStock: previous,
			NewStock:      next,
			TransactionID: entry.TransactionID,
			LowStock:      p.IsLowStock(),
		}
		event = dto.StockAdjustedEvent{
			EventType:       dto.StockAdjustedEventType,
			ProductID:       p.ProductID,
			StoreID:         p.StoreID,
			TransactionID:   entry.TransactionID,
			TransactionType: entry.TransactionType,
			Quantity:        entry.Quantity,
			PreviousStock:   previous,
			NewStock:        next,
			LowStock:        result.LowStock,
			OccurredAt:      now,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.Message(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("stock.new", result.NewStock.String()))
	uc.logger.Info("stock adjusted",
		zap.Int64("product_id", result.ProductID),
		zap.String("transaction_type", string(input.TransactionType)),
		zap.String("quantity", input.Quantity.String()),
		zap.String("previous_stock", result.PreviousStock.String()),
		zap.String("new_stock", result.NewStock.String()),
		zap.String("transaction_id", result.TransactionID),
	)

	if err := cache.InvalidateDetached(ctx, uc.cache, result.ProductID, uc.invalidateTimeout); err != nil {
		uc.logger.Error("cache invalidation failed after stock commit",
			zap.Int64("product_id", result.ProductID), zap.Error(err))
	}
	uc.publish(ctx, &event)

	return &result, nil
}

func (uc *inventoryUseCase) publish(ctx context.Context, event *dto.StockAdjustedEvent) {
	if uc.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.PublishStockAdjusted(pctx, event); err != nil {
		uc.logger.Error("failed to publish StockAdjusted event",
			zap.Int64("product_id", event.ProductID),
			zap.String("transaction_id", event.TransactionID),
			zap.Error(err),
		)
	}
}

func (uc *inventoryUseCase) ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	if filters.ProductID <= 0 {
		return nil, 0, apperror.Validation("ListTransactions", "invalid product id")
	}
	if filters.TransactionType != "" && !filters.TransactionType.Valid() {
		return nil, 0, apperror.Validation("ListTransactions", "Validation error",
			"transaction_type must be one of purchase, sale, adjustment, damage, return")
	}
	filters.Normalize()
	return uc.repo.ListTransactions(ctx, filters)
}

// ReconcileStock compares stock_quantity with the ledger sum under the row
// lock, so no adjustment can land between the two reads. It only reports.
func (uc *inventoryUseCase) ReconcileStock(ctx context.Context, productID int64) (*model.Reconciliation, error) {
	if productID <= 0 {
		return nil, apperror.Validation("ReconcileStock", "invalid product id")
	}

	ctx, span := uc.tracer.Start(ctx, "inventory.ReconcileStock", trace.WithAttributes(
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	var rec model.Reconciliation
	err := uc.repo.WithProductLock(ctx, productID, func(tx inventory.StockTx) error {
		sum, entries, err := tx.LedgerSum(ctx)
		if err != nil {
			return err
		}
		stored := tx.Product().StockQuantity
		rec = model.Reconciliation{
			ProductID:  productID,
			Stored:     stored,
			LedgerSum:  sum,
			Entries:    entries,
			Drift:      stored.Sub(sum),
			Consistent: stored.Equal(sum),
			CheckedAt:  uc.now().UTC(),
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.Message(err))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("stock.consistent", rec.Consistent))
	if !rec.Consistent {
		uc.logger.Warn("stock ledger drift detected",
			zap.Int64("product_id", productID),
			zap.String("stored", rec.Stored.String()),
			zap.String("ledger_sum", rec.LedgerSum.String()),
			zap.String("drift", rec.Drift.String()),
		)
	}
	return &rec, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItem, error) {
	if storeID == "" {
		return nil, apperror.Validation("ListLowStock", "store_id is required")
	}
	if _, err := uuid.Parse(storeID); err != nil {
		return nil, apperror.Validation("ListLowStock", "store_id must be a uuid")
	}
	return uc.repo.ListLowStock(ctx, storeID)
}
