package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/database/postgres"
)

const lockProductQuery = `
    SELECT product_id, store_id, category_id, product_name, description, brand, sku,
           mrp, selling_price, stock_quantity, unit_type, min_stock_level, image_url, gst_rate,
           is_active, created_at, updated_at
    FROM products
    WHERE product_id = $1
    FOR UPDATE`

type PGRepository struct {
	DB          *sqlx.DB
	LockTimeout time.Duration
}

func NewPGRepository(db *sqlx.DB, lockTimeout time.Duration) *PGRepository {
	return &PGRepository{DB: db, LockTimeout: lockTimeout}
}

func (r *PGRepository) WithProductLock(ctx context.Context, productID int64, fn func(tx inventory.StockTx) error) error {
	err := postgres.WithTx(ctx, r.DB, r.LockTimeout, func(tx *sqlx.Tx) error {
		var p model.Product
		if err := tx.GetContext(ctx, &p, lockProductQuery, productID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("AdjustStock", "Product not found")
			}
			return fmt.Errorf("lock product: %w", err)
		}
		if !p.IsActive {
			return apperror.NotFound("AdjustStock", "Product not found")
		}
		return fn(&pgStockTx{tx: tx, product: p})
	})
	return postgres.Classify("AdjustStock", err)
}

type pgStockTx struct {
	tx      *sqlx.Tx
	product model.Product
}

func (t *pgStockTx) Product() model.Product { return t.product }

func (t *pgStockTx) SetStock(ctx context.Context, stock decimal.Decimal, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = $1, updated_at = $2 WHERE product_id = $3`,
		stock, at, t.product.ProductID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	return nil
}

func (t *pgStockTx) AppendTransaction(ctx context.Context, entry *model.StockTransaction) error {
	query := `
        INSERT INTO stock_transactions (
            transaction_id, product_id, transaction_type, quantity,
            previous_stock, new_stock, notes, created_at
        )
        VALUES (
            :transaction_id, :product_id, :transaction_type, :quantity,
            :previous_stock, :new_stock, :notes, :created_at
        )
    `
	entry.ProductID = t.product.ProductID
	if _, err := t.tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (t *pgStockTx) LedgerSum(ctx context.Context) (decimal.Decimal, int, error) {
	var row struct {
		Sum     decimal.Decimal `db:"sum"`
		Entries int             `db:"entries"`
	}
	err := t.tx.GetContext(ctx, &row,
		`SELECT COALESCE(SUM(quantity), 0) AS sum, COUNT(*) AS entries FROM stock_transactions WHERE product_id = $1`,
		t.product.ProductID)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum ledger: %w", err)
	}
	return row.Sum, row.Entries, nil
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	items := []model.StockTransaction{}
	var count int

	conditions := []string{"product_id = $1"}
	args := []interface{}{f.ProductID}
	if f.TransactionType != "" {
		conditions = append(conditions, "transaction_type = $2")
		args = append(args, string(f.TransactionType))
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	if err := r.DB.GetContext(ctx, &count, "SELECT count(*) FROM stock_transactions"+whereClause, args...); err != nil {
		return nil, 0, postgres.Classify("ListTransactions", err)
	}

	query := fmt.Sprintf(`SELECT transaction_id, product_id, transaction_type, quantity, previous_stock,
            new_stock, notes, created_at
        FROM stock_transactions%s
        ORDER BY created_at DESC, transaction_id DESC
        LIMIT %d OFFSET %d`, whereClause, f.PageSize, (f.Page-1)*f.PageSize)

	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, postgres.Classify("ListTransactions", err)
	}
	return items, count, nil
}

func (r *PGRepository) ListLowStock(ctx context.Context, storeID string) ([]dto.LowStockItem, error) {
	items := []dto.LowStockItem{}
	query := `SELECT product_id, store_id, product_name, stock_quantity, min_stock_level, unit_type, shortage
        FROM low_stock_products
        WHERE store_id = $1
        ORDER BY shortage DESC, product_id`
	if err := r.DB.SelectContext(ctx, &items, query, storeID); err != nil {
		return nil, postgres.Classify("ListLowStock", err)
	}
	return items, nil
}

func (r *PGRepository) ListActiveProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	ids := []int64{}
	query := `SELECT product_id FROM products WHERE is_active = TRUE AND product_id > $1 ORDER BY product_id LIMIT $2`
	if err := r.DB.SelectContext(ctx, &ids, query, afterID, limit); err != nil {
		return nil, postgres.Classify("ListActiveProductIDs", err)
	}
	return ids, nil
}
