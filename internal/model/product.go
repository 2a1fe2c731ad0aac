package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UnitType string

const (
	UnitKg     UnitType = "kg"
	UnitGram   UnitType = "gram"
	UnitLiter  UnitType = "liter"
	UnitMl     UnitType = "ml"
	UnitPiece  UnitType = "piece"
	UnitDozen  UnitType = "dozen"
	UnitPacket UnitType = "packet"
)

var unitTypes = map[UnitType]struct{}{
	UnitKg: {}, UnitGram: {}, UnitLiter: {}, UnitMl: {}, UnitPiece: {}, UnitDozen: {}, UnitPacket: {},
}

func (u UnitType) Valid() bool {
	_, ok := unitTypes[u]
	return ok
}

// Product is a catalog row. StockQuantity is the materialized sum of the
// product's stock_transactions and only moves through a stock adjustment.
type Product struct {
	ProductID     int64               `db:"product_id" json:"product_id" gorm:"column:product_id;primaryKey;autoIncrement"`
	StoreID       string              `db:"store_id" json:"store_id" gorm:"type:uuid;not null;index:idx_products_store_active,priority:1"`
	CategoryID    *int64              `db:"category_id" json:"category_id" gorm:"index"`
	ProductName   string              `db:"product_name" json:"product_name" gorm:"size:255;not null"`
	Description   *string             `db:"description" json:"description"`
	Brand         *string             `db:"brand" json:"brand" gorm:"size:100"`
	SKU           *string             `db:"sku" json:"sku" gorm:"column:sku;size:100"`
	MRP           decimal.NullDecimal `db:"mrp" json:"mrp" gorm:"column:mrp;type:numeric(12,2)"`
	SellingPrice  decimal.Decimal     `db:"selling_price" json:"selling_price" gorm:"type:numeric(12,2);not null"`
	StockQuantity decimal.Decimal     `db:"stock_quantity" json:"stock_quantity" gorm:"type:numeric(12,3);not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0"`
	UnitType      UnitType            `db:"unit_type" json:"unit_type" gorm:"size:16;not null"`
	MinStockLevel decimal.Decimal     `db:"min_stock_level" json:"min_stock_level" gorm:"type:numeric(12,3);not null;default:10"`
	ImageURL      *string             `db:"image_url" json:"image_url"`
	GSTRate       decimal.Decimal     `db:"gst_rate" json:"gst_rate" gorm:"column:gst_rate;type:numeric(5,2);not null;default:0"`
	IsActive      bool                `db:"is_active" json:"is_active" gorm:"not null;default:true;index:idx_products_store_active,priority:2"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether the product has reached its reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity.LessThanOrEqual(p.MinStockLevel)
}
