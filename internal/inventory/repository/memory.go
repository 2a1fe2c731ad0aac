package repository

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/memdb"
)

// MemoryRepository keeps the ledger in a memdb.DB. memdb's per-product lock
// stands in for the row lock Postgres takes with FOR UPDATE.
type MemoryRepository struct {
	DB *memdb.DB
}

func NewMemoryRepository(db *memdb.DB) *MemoryRepository {
	return &MemoryRepository{DB: db}
}

func (r *MemoryRepository) WithProductLock(ctx context.Context, productID int64, fn func(tx inventory.StockTx) error) error {
	tx, err := r.DB.Begin(ctx, productID)
	if err != nil {
		return apperror.Transient("AdjustStock", err)
	}
	defer tx.Rollback()

	p, found := tx.Product()
	if !found || !p.IsActive {
		return apperror.NotFound("AdjustStock", "Product not found")
	}

	if err := fn(&memStockTx{db: r.DB, tx: tx, product: p}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.Transient("AdjustStock", err)
	}
	return nil
}

type memStockTx struct {
	db      *memdb.DB
	tx      *memdb.Tx
	product model.Product
}

func (t *memStockTx) Product() model.Product { return t.product }

func (t *memStockTx) SetStock(ctx context.Context, stock decimal.Decimal, at time.Time) error {
	p, _ := t.tx.Product()
	p.StockQuantity = stock
	p.UpdatedAt = at
	t.tx.PutProduct(p)
	return nil
}

func (t *memStockTx) AppendTransaction(ctx context.Context, entry *model.StockTransaction) error {
	entry.ProductID = t.product.ProductID
	t.tx.AppendTransaction(*entry)
	return nil
}

func (t *memStockTx) LedgerSum(ctx context.Context) (decimal.Decimal, int, error) {
	ledger := t.db.Transactions(t.product.ProductID)
	sum := decimal.Zero
	for _, e := range ledger {
		sum = sum.Add(e.Quantity)
	}
	return sum, len(ledger), nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	ledger := r.DB.Transactions(f.ProductID)

	// newest first
	matched := make([]model.StockTransaction, 0, len(ledger))
	for i := len(ledger) - 1; i >= 0; i-- {
		if f.TransactionType == "" || ledger[i].TransactionType == f.TransactionType {
			matched = append(matched, ledger[i])
		}
	}

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []model.StockTransaction{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItem, error) {
	products := r.DB.Products(func(p *model.Product) bool {
		return p.IsActive && p.StoreID == storeID && p.IsLowStock()
	})

	items := make([]dto.LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, dto.LowStockItem{
			ProductID:     p.ProductID,
			StoreID:       p.StoreID,
			ProductName:   p.ProductName,
			StockQuantity: p.StockQuantity,
			MinStockLevel: p.MinStockLevel,
			UnitType:      p.UnitType,
			Shortage:      p.MinStockLevel.Sub(p.StockQuantity),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Shortage.GreaterThan(items[j].Shortage)
	})
	return items, nil
}

func (r *MemoryRepository) ListActiveProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	products := r.DB.Products(func(p *model.Product) bool {
		return p.IsActive && p.ProductID > afterID
	})
	ids := make([]int64, 0, limit)
	for _, p := range products {
		if len(ids) == limit {
			break
		}
		ids = append(ids, p.ProductID)
	}
	return ids, nil
}
