package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/memdb"
	"github.com/smartcart/product-service/internal/product/dto"
)

// MemoryRepository serves the catalog from a memdb.DB. It shares the
// per-product locks with the inventory memory repository built on the same DB.
type MemoryRepository struct {
	DB  *memdb.DB
	now func() time.Time
}

func NewMemoryRepository(db *memdb.DB) *MemoryRepository {
	return &MemoryRepository{DB: db, now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, p *model.Product, opening *model.StockTransaction) error {
	if err := ctx.Err(); err != nil {
		return apperror.Transient("CreateProduct", err)
	}
	stored := r.DB.InsertProduct(*p, opening)
	p.ProductID = stored.ProductID
	if opening != nil {
		opening.ProductID = stored.ProductID
	}
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	p, ok := r.DB.Product(id)
	if !ok || !p.IsActive {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.DB.Products(func(p *model.Product) bool {
		_, ok := want[p.ProductID]
		return ok && p.IsActive
	}), nil
}

func (r *MemoryRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	search := strings.ToLower(f.SearchQuery)
	matched := r.DB.Products(func(p *model.Product) bool {
		if !p.IsActive || p.StoreID != f.StoreID {
			return false
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			return false
		}
		if f.InStock && !p.StockQuantity.IsPositive() {
			return false
		}
		return search == "" || matchesText(p, search)
	})
	sortByName(matched)

	total := len(matched)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []model.Product{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryRepository) Search(ctx context.Context, storeID, query string, limit int) ([]model.Product, error) {
	search := strings.ToLower(query)
	matched := r.DB.Products(func(p *model.Product) bool {
		return p.IsActive && p.StoreID == storeID && matchesText(p, search)
	})
	sortByName(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepository) UpdateFields(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	tx, err := r.DB.Begin(ctx, input.ID)
	if err != nil {
		return nil, apperror.Transient("UpdateProduct", err)
	}
	defer tx.Rollback()

	p, found := tx.Product()
	if !found || !p.IsActive {
		return nil, apperror.NotFound("UpdateProduct", "Product not found")
	}
	input.Apply(&p)
	p.UpdatedAt = r.now()
	tx.PutProduct(p)

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.Transient("UpdateProduct", err)
	}
	return &p, nil
}

func (r *MemoryRepository) SoftDelete(ctx context.Context, id int64) error {
	tx, err := r.DB.Begin(ctx, id)
	if err != nil {
		return apperror.Transient("DeleteProduct", err)
	}
	defer tx.Rollback()

	p, found := tx.Product()
	if !found || !p.IsActive {
		return apperror.NotFound("DeleteProduct", "Product not found")
	}
	p.IsActive = false
	p.UpdatedAt = r.now()
	tx.PutProduct(p)

	if err := tx.Commit(ctx); err != nil {
		return apperror.Transient("DeleteProduct", err)
	}
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matchesText(p *model.Product, lowered string) bool {
	if strings.Contains(strings.ToLower(p.ProductName), lowered) {
		return true
	}
	return p.Description != nil && strings.Contains(strings.ToLower(*p.Description), lowered)
}

func sortByName(products []model.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].ProductName != products[j].ProductName {
			return products[i].ProductName < products[j].ProductName
		}
		return products[i].ProductID < products[j].ProductID
	})
}
