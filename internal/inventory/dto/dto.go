package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/model"
)

type TransactionFilters struct {
	ProductID       int64
	TransactionType model.TransactionType
	Page            int
	PageSize        int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

func (f *TransactionFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// LowStockItem is one row of the low_stock_products view.
type LowStockItem struct {
	ProductID     int64           `db:"product_id" json:"product_id"`
	StoreID       string          `db:"store_id" json:"store_id"`
	ProductName   string          `db:"product_name" json:"product_name"`
	StockQuantity decimal.Decimal `db:"stock_quantity" json:"stock_quantity"`
	MinStockLevel decimal.Decimal `db:"min_stock_level" json:"min_stock_level"`
	UnitType      model.UnitType  `db:"unit_type" json:"unit_type"`
	Shortage      decimal.Decimal `db:"shortage" json:"shortage"`
}

type AdjustStockResult struct {
	ProductID     int64           `json:"product_id"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	TransactionID string          `json:"transaction_id"`
	LowStock      bool            `json:"low_stock"`
}

// StockAdjustedEvent is published after every committed adjustment.
type StockAdjustedEvent struct {
	EventType       string                `json:"event_type"`
	ProductID       int64                 `json:"product_id"`
	StoreID         string                `json:"store_id"`
	TransactionID   string                `json:"transaction_id"`
	TransactionType model.TransactionType `json:"transaction_type"`
	Quantity        decimal.Decimal       `json:"quantity"`
	PreviousStock   decimal.Decimal       `json:"previous_stock"`
	NewStock        decimal.Decimal       `json:"new_stock"`
	LowStock        bool                  `json:"low_stock"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

const StockAdjustedEventType = "StockAdjusted"
