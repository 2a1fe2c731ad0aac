package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
)

type Repository interface {
	// WithProductLock runs fn while holding the exclusive lock of an active
	// product row. Writes made through the StockTx commit together when fn
	// returns nil and are discarded otherwise, including when ctx ends first.
	// A missing or inactive product yields apperror.ErrNotFound.
	WithProductLock(ctx context.Context, productID int64, fn func(tx StockTx) error) error

	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
	ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItem, error)
	// ListActiveProductIDs pages through active products in id order.
	ListActiveProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// StockTx is the unit of work handed to WithProductLock.
type StockTx interface {
	// Product is the locked row as read at lock time.
	Product() model.Product
	SetStock(ctx context.Context, stock decimal.Decimal, at time.Time) error
	AppendTransaction(ctx context.Context, entry *model.StockTransaction) error
	// LedgerSum totals the committed ledger of the locked product.
	LedgerSum(ctx context.Context) (sum decimal.Decimal, entries int, err error)
}

// EventPublisher emits StockAdjusted events. Delivery is best effort.
type EventPublisher interface {
	PublishStockAdjusted(ctx context.Context, event *dto.StockAdjustedEvent) error
}
