package inventory

import (
	"context"

	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
)

type UseCase interface {
	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*dto.AdjustStockResult, error)
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error)
	ReconcileStock(ctx context.Context, productID int64) (*model.Reconciliation, error)
	ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItem, error)
}
