// Package memdb is an in-process durable store for products and their stock
// ledger. Each product has its own exclusive lock, taken by Begin and held
// until Commit or Rollback, which gives the same per-row serialization as
// SELECT ... FOR UPDATE without any lock spanning products.
package memdb

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/smartcart/product-service/internal/model"
)

var ErrTxDone = errors.New("memdb: transaction already finished")

type DB struct {
	mu           sync.RWMutex
	products     map[int64]model.Product
	transactions map[int64][]model.StockTransaction
	nextID       int64

	locksMu sync.Mutex
	locks   map[int64]chan struct{}
}

func New() *DB {
	return &DB{
		products:     make(map[int64]model.Product),
		transactions: make(map[int64][]model.StockTransaction),
		locks:        make(map[int64]chan struct{}),
	}
}

// lockFor returns the lock of an existing product. Unknown ids get no entry
// so lookups of missing products never grow the lock table.
func (db *DB) lockFor(productID int64) (chan struct{}, bool) {
	if _, ok := db.Product(productID); !ok {
		return nil, false
	}
	db.locksMu.Lock()
	defer db.locksMu.Unlock()
	ch, ok := db.locks[productID]
	if !ok {
		ch = make(chan struct{}, 1)
		db.locks[productID] = ch
	}
	return ch, true
}

// InsertProduct assigns the next product id and stores p. When opening is
// non-nil it is recorded as the product's first ledger entry in the same step.
func (db *DB) InsertProduct(p model.Product, opening *model.StockTransaction) model.Product {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextID++
	p.ProductID = db.nextID
	db.products[p.ProductID] = p
	if opening != nil {
		entry := *opening
		entry.ProductID = p.ProductID
		db.transactions[p.ProductID] = append(db.transactions[p.ProductID], entry)
	}
	return p
}

func (db *DB) Product(productID int64) (model.Product, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.products[productID]
	return p, ok
}

// Products returns the products accepted by match ordered by product id.
func (db *DB) Products(match func(p *model.Product) bool) []model.Product {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]model.Product, 0)
	for _, p := range db.products {
		p := p
		if match == nil || match(&p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Transactions returns the ledger of productID in creation order.
func (db *DB) Transactions(productID int64) []model.StockTransaction {
	db.mu.RLock()
	defer db.mu.RUnlock()

	src := db.transactions[productID]
	out := make([]model.StockTransaction, len(src))
	copy(out, src)
	return out
}

// Begin takes the exclusive lock of productID, waiting until it is free or
// ctx is done. A missing product yields a Tx whose Product reports not found.
func (db *DB) Begin(ctx context.Context, productID int64) (*Tx, error) {
	lock, exists := db.lockFor(productID)
	if !exists {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Tx{db: db, productID: productID, release: func() {}}, nil
	}
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p, found := db.Product(productID)
	return &Tx{
		db:        db,
		productID: productID,
		product:   p,
		found:     found,
		release:   func() { <-lock },
	}, nil
}

// Tx stages writes to one product and its ledger until Commit.
type Tx struct {
	db        *DB
	productID int64
	product   model.Product
	found     bool
	dirty     bool
	appended  []model.StockTransaction
	done      bool
	release   func()
}

func (tx *Tx) Product() (model.Product, bool) {
	return tx.product, tx.found
}

func (tx *Tx) PutProduct(p model.Product) {
	p.ProductID = tx.productID
	tx.product = p
	tx.dirty = true
}

func (tx *Tx) AppendTransaction(t model.StockTransaction) {
	t.ProductID = tx.productID
	tx.appended = append(tx.appended, t)
}

// Commit applies the staged writes atomically. A done ctx rolls back instead.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		tx.Rollback()
		return err
	}
	defer tx.finish()

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.dirty {
		tx.db.products[tx.productID] = tx.product
	}
	if len(tx.appended) > 0 {
		tx.db.transactions[tx.productID] = append(tx.db.transactions[tx.productID], tx.appended...)
	}
	return nil
}

// Rollback discards staged writes and releases the lock. Safe to call after Commit.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.finish()
}

func (tx *Tx) finish() {
	tx.done = true
	tx.appended = nil
	tx.release()
}
