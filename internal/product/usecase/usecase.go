package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/cache"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/product"
	"github.com/smartcart/product-service/internal/product/dto"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL = time.Hour
	indexTimeout    = 3 * time.Second
	openingNotes    = "opening stock"
)

type productUseCase struct {
	repo     product.Repository
	cache    cache.ProductCache
	index    product.SearchIndex
	logger   logger.ZapLogger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewProductUseCase wires the catalog. index may be nil, in which case search
// falls back to the store.
func NewProductUseCase(repo product.Repository, c cache.ProductCache, index product.SearchIndex, log logger.ZapLogger, cacheTTL time.Duration) product.UseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &productUseCase{
		repo:     repo,
		cache:    c,
		index:    index,
		logger:   log,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	p := input.ToModel(now)

	var opening *model.StockTransaction
	if !p.StockQuantity.IsZero() {
		notes := openingNotes
		opening = &model.StockTransaction{
			TransactionID:   uuid.New().String(),
			TransactionType: model.TransactionAdjustment,
			Quantity:        p.StockQuantity,
			PreviousStock:   decimal.Zero,
			NewStock:        p.StockQuantity,
			Notes:           &notes,
			CreatedAt:       now,
		}
	}

	if err := uc.repo.Create(ctx, p, opening); err != nil {
		return nil, err
	}
	uc.logger.Info("product created",
		zap.Int64("product_id", p.ProductID),
		zap.String("store_id", p.StoreID),
		zap.String("opening_stock", p.StockQuantity.String()),
	)

	uc.syncToIndex(ctx, p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, bool, error) {
	if id <= 0 {
		return nil, false, apperror.Validation("GetProduct", "invalid product id")
	}

	data, hit, err := uc.cache.Get(ctx, id)
	switch {
	case err != nil:
		uc.logger.Warn("cache read failed, reading store", zap.Int64("product_id", id), zap.Error(err))
	case hit:
		var p model.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, true, nil
		}
		uc.logger.Warn("discarding undecodable cache entry", zap.Int64("product_id", id))
	}

	// The generation must be observed before the store read so a write
	// committing in between makes the fill below a no-op.
	gen, genErr := uc.cache.Generation(ctx, id)
	if genErr != nil {
		uc.logger.Warn("cache generation read failed, skipping fill", zap.Int64("product_id", id), zap.Error(genErr))
	}

	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if p == nil {
		return nil, false, apperror.NotFound("GetProduct", "Product not found")
	}

	if genErr == nil {
		uc.fill(ctx, p, gen)
	}
	return p, false, nil
}

func (uc *productUseCase) fill(ctx context.Context, p *model.Product, gen int64) {
	data, err := json.Marshal(p)
	if err != nil {
		uc.logger.Error("encode product snapshot", zap.Int64("product_id", p.ProductID), zap.Error(err))
		return
	}
	stored, err := uc.cache.SetIfGeneration(ctx, p.ProductID, gen, data, uc.cacheTTL)
	if err != nil {
		uc.logger.Warn("cache fill failed", zap.Int64("product_id", p.ProductID), zap.Error(err))
		return
	}
	if !stored {
		uc.logger.Debug("cache fill superseded by a write", zap.Int64("product_id", p.ProductID))
	}
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	if filters.StoreID == "" {
		return nil, 0, apperror.Validation("ListProducts", "store_id is required")
	}
	if _, err := uuid.Parse(filters.StoreID); err != nil {
		return nil, 0, apperror.Validation("ListProducts", "store_id must be a uuid")
	}
	filters.Normalize()
	return uc.repo.FindAll(ctx, filters)
}

func (uc *productUseCase) SearchProducts(ctx context.Context, storeID, query string) ([]model.Product, error) {
	if storeID == "" || query == "" {
		return nil, apperror.Validation("SearchProducts", "q and store_id are required")
	}
	if _, err := uuid.Parse(storeID); err != nil {
		return nil, apperror.Validation("SearchProducts", "store_id must be a uuid")
	}

	if uc.index != nil {
		ids, err := uc.index.SearchProducts(ctx, storeID, query, dto.SearchLimit)
		if err == nil {
			return uc.hydrate(ctx, ids)
		}
		// If ES fails, fall through to DB
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	return uc.repo.Search(ctx, storeID, query, dto.SearchLimit)
}

// hydrate loads ids from the store keeping the index ranking. Ids the store
// no longer has as active are dropped.
func (uc *productUseCase) hydrate(ctx context.Context, ids []int64) ([]model.Product, error) {
	found, err := uc.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Product, len(found))
	for _, p := range found {
		byID[p.ProductID] = p
	}
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	p, err := uc.repo.UpdateFields(ctx, input)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, p.ProductID)
	uc.syncToIndex(ctx, p)
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.Validation("DeleteProduct", "invalid product id")
	}
	if err := uc.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	uc.invalidate(ctx, id)
	if uc.index != nil {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
		defer cancel()
		if err := uc.index.DeleteProduct(ictx, id); err != nil {
			uc.logger.Error("failed to delete product from ES", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	return nil
}

func (uc *productUseCase) Health(ctx context.Context) product.Health {
	h := product.Health{Status: "healthy", Database: "connected", Cache: "connected"}
	if err := uc.cache.Ping(ctx); err != nil {
		h.Cache = "disconnected"
		h.Status = "degraded"
	}
	if err := uc.repo.Ping(ctx); err != nil {
		h.Database = "disconnected"
		h.Status = "unhealthy"
	}
	return h
}

// invalidate runs after the store commit. A failure leaves a stale entry
// until its TTL, so it is logged loudly but not returned.
func (uc *productUseCase) invalidate(ctx context.Context, id int64) {
	if err := cache.InvalidateDetached(ctx, uc.cache, id, cache.DefaultInvalidateTimeout); err != nil {
		uc.logger.Error("cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
}

func (uc *productUseCase) syncToIndex(ctx context.Context, p *model.Product) {
	if uc.index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
	defer cancel()
	if err := uc.index.IndexProduct(ictx, p); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ProductID), zap.Error(err))
	}
}
