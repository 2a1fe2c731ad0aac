package product

import (
	"context"

	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/product/dto"
)

type Repository interface {
	// Create inserts p and, when opening is non-nil, its opening ledger entry
	// in one unit of work. p.ProductID is set on return.
	Create(ctx context.Context, p *model.Product, opening *model.StockTransaction) error
	// FindByID returns the active product or nil when absent or deleted.
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Search(ctx context.Context, storeID, query string, limit int) ([]model.Product, error)

	// UpdateFields applies a partial update under the product's row lock.
	// It never writes stock_quantity.
	UpdateFields(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	// SoftDelete clears is_active under the product's row lock.
	SoftDelete(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// SearchIndex is the optional full-text index kept beside the store.
type SearchIndex interface {
	IndexProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
	SearchProducts(ctx context.Context, storeID, text string, limit int) ([]int64, error)
}
