package product

import (
	"context"

	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	// GetProduct reads through the cache. cached reports a cache hit.
	GetProduct(ctx context.Context, id int64) (p *model.Product, cached bool, err error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	SearchProducts(ctx context.Context, storeID, query string) ([]model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Health(ctx context.Context) Health
}

// Health is the dependency status reported by the health endpoint.
type Health struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Status   string `json:"status"`
}
