package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/database/postgres"
	"github.com/smartcart/product-service/internal/product/dto"
)

const productColumns = `product_id, store_id, category_id, product_name, description, brand, sku,
	mrp, selling_price, stock_quantity, unit_type, min_stock_level, image_url, gst_rate,
	is_active, created_at, updated_at`

type PGRepository struct {
	DB          *sqlx.DB
	LockTimeout time.Duration
}

func NewPGRepository(db *sqlx.DB, lockTimeout time.Duration) *PGRepository {
	return &PGRepository{DB: db, LockTimeout: lockTimeout}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product, opening *model.StockTransaction) error {
	insertProduct := `
        INSERT INTO products (
            store_id, category_id, product_name, description, brand, sku, mrp,
            selling_price, stock_quantity, unit_type, min_stock_level, image_url,
            gst_rate, is_active, created_at, updated_at
        )
        VALUES (
            :store_id, :category_id, :product_name, :description, :brand, :sku, :mrp,
            :selling_price, :stock_quantity, :unit_type, :min_stock_level, :image_url,
            :gst_rate, :is_active, :created_at, :updated_at
        )
        RETURNING product_id
    `
	insertOpening := `
        INSERT INTO stock_transactions (
            transaction_id, product_id, transaction_type, quantity,
            previous_stock, new_stock, notes, created_at
        )
        VALUES (
            :transaction_id, :product_id, :transaction_type, :quantity,
            :previous_stock, :new_stock, :notes, :created_at
        )
    `

	err := postgres.WithTx(ctx, r.DB, 0, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, insertProduct)
		if err != nil {
			return err
		}
		defer stmt.Close()

		if err := stmt.GetContext(ctx, &p.ProductID, p); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		if opening == nil {
			return nil
		}
		opening.ProductID = p.ProductID
		if _, err := tx.NamedExecContext(ctx, insertOpening, opening); err != nil {
			return fmt.Errorf("insert opening entry: %w", err)
		}
		return nil
	})
	return postgres.Classify("CreateProduct", err)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1 AND is_active = TRUE LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, postgres.Classify("FindProduct", err)
	}
	return &product, nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE is_active = TRUE AND product_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	// Rebind for Postgres ($1, $2...)
	query = r.DB.Rebind(query)

	items := []model.Product{}
	if err := r.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, postgres.Classify("FindProducts", err)
	}
	return items, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	products := []model.Product{}
	var count int

	conditions := []string{"is_active = TRUE", "store_id = :store_id"}
	args := map[string]interface{}{"store_id": f.StoreID}

	if f.CategoryID != nil {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = *f.CategoryID
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(product_name ILIKE :search OR description ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}
	if f.InStock {
		conditions = append(conditions, "stock_quantity > 0")
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	// Count
	countQuery := "SELECT count(*) FROM products" + whereClause
	rows, err := sqlx.NamedQueryContext(ctx, r.DB, countQuery, args)
	if err != nil {
		return nil, 0, postgres.Classify("ListProducts", err)
	}
	if rows.Next() {
		err = rows.Scan(&count)
	}
	rows.Close()
	if err != nil {
		return nil, 0, postgres.Classify("ListProducts", err)
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY product_name, product_id LIMIT %d OFFSET %d",
		productColumns, whereClause, f.PageSize, (f.Page-1)*f.PageSize)

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, postgres.Classify("ListProducts", err)
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, postgres.Classify("ListProducts", err)
	}

	return products, count, nil
}

func (r *PGRepository) Search(ctx context.Context, storeID, query string, limit int) ([]model.Product, error) {
	products := []model.Product{}
	q := `SELECT ` + productColumns + ` FROM products
        WHERE store_id = $1 AND is_active = TRUE
          AND (product_name ILIKE $2 OR description ILIKE $2)
        ORDER BY product_name
        LIMIT $3`
	if err := r.DB.SelectContext(ctx, &products, q, storeID, "%"+query+"%", limit); err != nil {
		return nil, postgres.Classify("SearchProducts", err)
	}
	return products, nil
}

func (r *PGRepository) UpdateFields(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	changes := input.Changes()
	sets := make([]string, 0, len(changes)+1)
	args := make([]interface{}, 0, len(changes)+2)
	for i, c := range changes {
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column, i+1))
		args = append(args, c.Value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, input.ID)

	update := fmt.Sprintf("UPDATE products SET %s WHERE product_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), productColumns)

	var updated model.Product
	err := postgres.WithTx(ctx, r.DB, r.LockTimeout, func(tx *sqlx.Tx) error {
		if err := lockActiveProduct(ctx, tx, "UpdateProduct", input.ID); err != nil {
			return err
		}
		return tx.GetContext(ctx, &updated, update, args...)
	})
	if err != nil {
		return nil, postgres.Classify("UpdateProduct", err)
	}
	return &updated, nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, id int64) error {
	err := postgres.WithTx(ctx, r.DB, r.LockTimeout, func(tx *sqlx.Tx) error {
		if err := lockActiveProduct(ctx, tx, "DeleteProduct", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE product_id = $1`, id)
		return err
	})
	return postgres.Classify("DeleteProduct", err)
}

func (r *PGRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// lockActiveProduct takes the row lock shared with stock adjustments.
func lockActiveProduct(ctx context.Context, tx *sqlx.Tx, op string, id int64) error {
	var active bool
	err := tx.GetContext(ctx, &active, `SELECT is_active FROM products WHERE product_id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return apperror.NotFound(op, "Product not found")
	}
	return err
}
