package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionSale       TransactionType = "sale"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionDamage     TransactionType = "damage"
	TransactionReturn     TransactionType = "return"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionAdjustment, TransactionDamage, TransactionReturn:
		return true
	}
	return false
}

// Stock columns are numeric(12,3): three fractional digits and magnitudes
// below 1e9. Values outside that range would be rounded or rejected by the
// database, so they are refused before any write.
const StockScale = 3

var MaxStock = decimal.New(1, 9)

// FitsStockColumn reports whether q is stored exactly by a stock column.
func FitsStockColumn(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(StockScale)) && q.Abs().LessThan(MaxStock)
}

// StockTransaction is an append-only ledger entry. Quantity is the signed delta.
type StockTransaction struct {
	TransactionID   string          `db:"transaction_id" json:"transaction_id" gorm:"type:uuid;primaryKey"`
	ProductID       int64           `db:"product_id" json:"product_id" gorm:"not null;index:idx_stock_transactions_product_created,priority:1"`
	TransactionType TransactionType `db:"transaction_type" json:"transaction_type" gorm:"size:16;not null"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity" gorm:"type:numeric(12,3);not null"`
	PreviousStock   decimal.Decimal `db:"previous_stock" json:"previous_stock" gorm:"type:numeric(12,3);not null"`
	NewStock        decimal.Decimal `db:"new_stock" json:"new_stock" gorm:"type:numeric(12,3);not null"`
	Notes           *string         `db:"notes" json:"notes"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at" gorm:"not null;index:idx_stock_transactions_product_created,priority:2"`
}

// Reconciliation compares the stored stock_quantity with the ledger sum.
type Reconciliation struct {
	ProductID  int64           `json:"product_id"`
	Stored     decimal.Decimal `json:"stored_stock"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Entries    int             `json:"entries"`
	Drift      decimal.Decimal `json:"drift"`
	Consistent bool            `json:"consistent"`
	CheckedAt  time.Time       `json:"checked_at"`
}
