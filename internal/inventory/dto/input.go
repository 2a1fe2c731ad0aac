package dto

import (
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/model"
)

const MaxNotesLength = 500

type AdjustStockInput struct {
	ProductID       int64                 `json:"-"`
	Quantity        decimal.Decimal       `json:"quantity"`
	TransactionType model.TransactionType `json:"transaction_type"`
	Notes           *string               `json:"notes"`
}

// Validate enforces the sign each transaction type allows: purchases and
// returns add stock, sales and damage remove it, adjustments go either way.
func (in *AdjustStockInput) Validate() error {
	if in.ProductID <= 0 {
		return apperror.Validation("AdjustStock", "invalid product id")
	}
	if !in.TransactionType.Valid() {
		return apperror.Validation("AdjustStock", "Validation error",
			"transaction_type must be one of purchase, sale, adjustment, damage, return")
	}
	if in.Quantity.IsZero() {
		return apperror.Validation("AdjustStock", "Validation error", "quantity must be non-zero")
	}
	if !model.FitsStockColumn(in.Quantity) {
		return apperror.Validation("AdjustStock", "Validation error",
			"quantity must have at most 3 decimal places and be below 1000000000")
	}

	switch in.TransactionType {
	case model.TransactionPurchase, model.TransactionReturn:
		if !in.Quantity.IsPositive() {
			return apperror.Validation("AdjustStock", "Validation error",
				string(in.TransactionType)+" quantity must be positive")
		}
	case model.TransactionSale, model.TransactionDamage:
		if !in.Quantity.IsNegative() {
			return apperror.Validation("AdjustStock", "Validation error",
				string(in.TransactionType)+" quantity must be negative")
		}
	}

	if in.Notes != nil && len([]rune(*in.Notes)) > MaxNotesLength {
		return apperror.Validation("AdjustStock", "Validation error", "notes must be at most 500 characters")
	}
	return nil
}
