// Package reconciler periodically compares every active product's stored
// stock with its ledger. It reports drift and never rewrites stock.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/cache"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	LockKey          = "reconcile:stock:lock"
	DefaultBatchSize = 100
	releaseTimeout   = 2 * time.Second
)

// ProductPager is satisfied by inventory.Repository.
type ProductPager interface {
	ListActiveProductIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// StockReconciler is satisfied by inventory.UseCase.
type StockReconciler interface {
	ReconcileStock(ctx context.Context, productID int64) (*model.Reconciliation, error)
}

type Config struct {
	Interval  time.Duration // zero disables the loop
	BatchSize int
}

type Result struct {
	Checked int
	Drifted int
	Failed  int
	Skipped bool // another instance held the lock
}

type Reconciler struct {
	pager     ProductPager
	stock     StockReconciler
	locker    cache.Locker
	logger    logger.ZapLogger
	interval  time.Duration
	batchSize int
}

func New(pager ProductPager, stock StockReconciler, locker cache.Locker, log logger.ZapLogger, cfg Config) *Reconciler {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Reconciler{
		pager:     pager,
		stock:     stock,
		locker:    locker,
		logger:    log,
		interval:  cfg.Interval,
		batchSize: batch,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("stock reconciler disabled")
		return
	}
	r.logger.Info("starting stock reconciler", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping stock reconciler")
			return
		case <-ticker.C:
			res, err := r.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Error("stock reconcile sweep failed", zap.Error(err))
				continue
			}
			if !res.Skipped {
				r.logger.Info("stock reconcile sweep finished",
					zap.Int("checked", res.Checked),
					zap.Int("drifted", res.Drifted),
					zap.Int("failed", res.Failed),
				)
			}
		}
	}
}

// Sweep walks all active products in id order under the sweep lock.
// Per-product failures are counted and logged; paging failures abort.
func (r *Reconciler) Sweep(ctx context.Context) (Result, error) {
	var res Result

	token := uuid.New().String()
	ttl := r.interval
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := r.locker.AcquireLock(ctx, LockKey, token, ttl)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Skipped = true
		return res, nil
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := r.locker.ReleaseLock(releaseCtx, LockKey, token); err != nil {
			r.logger.Warn("failed to release reconcile lock", zap.Error(err))
		}
	}()

	var after int64
	for {
		ids, err := r.pager.ListActiveProductIDs(ctx, after, r.batchSize)
		if err != nil {
			return res, err
		}
		for _, id := range ids {
			rec, err := r.stock.ReconcileStock(ctx, id)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				r.logger.Warn("reconcile product failed", zap.Int64("product_id", id), zap.Error(err))
			case !rec.Consistent:
				res.Drifted++
			}
			res.Checked++
		}
		if len(ids) < r.batchSize {
			return res, nil
		}
		after = ids[len(ids)-1]
	}
}
