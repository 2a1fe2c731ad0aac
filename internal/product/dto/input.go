package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/model"
)

var (
	defaultMinStockLevel = decimal.NewFromInt(10)
	maxGSTRate           = decimal.NewFromInt(100)
)

type CreateProductInput struct {
	StoreID       string           `json:"store_id"`
	CategoryID    *int64           `json:"category_id"`
	ProductName   string           `json:"product_name"`
	Description   *string          `json:"description"`
	Brand         *string          `json:"brand"`
	SKU           *string          `json:"sku"`
	MRP           *decimal.Decimal `json:"mrp"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	StockQuantity *decimal.Decimal `json:"stock_quantity"`
	UnitType      model.UnitType   `json:"unit_type"`
	MinStockLevel *decimal.Decimal `json:"min_stock_level"`
	ImageURL      *string          `json:"image_url"`
	GSTRate       *decimal.Decimal `json:"gst_rate"`
}

func (in *CreateProductInput) Validate() error {
	var problems []string

	if _, err := uuid.Parse(in.StoreID); err != nil {
		problems = append(problems, "store_id must be a uuid")
	}
	name := strings.TrimSpace(in.ProductName)
	if name == "" || len(name) > 255 {
		problems = append(problems, "product_name must be 1-255 characters")
	}
	if in.Brand != nil && len(*in.Brand) > 100 {
		problems = append(problems, "brand must be at most 100 characters")
	}
	if in.SKU != nil && len(*in.SKU) > 100 {
		problems = append(problems, "sku must be at most 100 characters")
	}
	if in.MRP != nil && !in.MRP.IsPositive() {
		problems = append(problems, "mrp must be positive")
	}
	if in.SellingPrice == nil || !in.SellingPrice.IsPositive() {
		problems = append(problems, "selling_price must be positive")
	}
	if in.StockQuantity != nil && (in.StockQuantity.IsNegative() || !model.FitsStockColumn(*in.StockQuantity)) {
		problems = append(problems, stockProblem("stock_quantity"))
	}
	if !in.UnitType.Valid() {
		problems = append(problems, "unit_type must be one of kg, gram, liter, ml, piece, dozen, packet")
	}
	if in.MinStockLevel != nil && (in.MinStockLevel.IsNegative() || !model.FitsStockColumn(*in.MinStockLevel)) {
		problems = append(problems, stockProblem("min_stock_level"))
	}
	if in.GSTRate != nil && (in.GSTRate.IsNegative() || in.GSTRate.GreaterThan(maxGSTRate)) {
		problems = append(problems, "gst_rate must be between 0 and 100")
	}

	if len(problems) > 0 {
		return apperror.Validation("CreateProduct", "Validation error", problems...)
	}
	return nil
}

func stockProblem(field string) string {
	return field + " must be non-negative, below 1000000000, with at most 3 decimal places"
}

// ToModel builds the product row. Stock and timestamps come from the caller.
func (in *CreateProductInput) ToModel(now time.Time) *model.Product {
	p := &model.Product{
		StoreID:       in.StoreID,
		CategoryID:    in.CategoryID,
		ProductName:   strings.TrimSpace(in.ProductName),
		Description:   in.Description,
		Brand:         in.Brand,
		SKU:           in.SKU,
		UnitType:      in.UnitType,
		MinStockLevel: defaultMinStockLevel,
		ImageURL:      in.ImageURL,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.MRP != nil {
		p.MRP = decimal.NewNullDecimal(*in.MRP)
	}
	if in.SellingPrice != nil {
		p.SellingPrice = *in.SellingPrice
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.MinStockLevel != nil {
		p.MinStockLevel = *in.MinStockLevel
	}
	if in.GSTRate != nil {
		p.GSTRate = *in.GSTRate
	}
	return p
}

// UpdateProductInput is a partial field update. Stock is deliberately not
// updatable here; StockQuantity only exists so a request carrying it can be
// rejected.
type UpdateProductInput struct {
	ID            int64            `json:"-"`
	CategoryID    *int64           `json:"category_id"`
	ProductName   *string          `json:"product_name"`
	Description   *string          `json:"description"`
	Brand         *string          `json:"brand"`
	SKU           *string          `json:"sku"`
	MRP           *decimal.Decimal `json:"mrp"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	UnitType      *model.UnitType  `json:"unit_type"`
	MinStockLevel *decimal.Decimal `json:"min_stock_level"`
	ImageURL      *string          `json:"image_url"`
	GSTRate       *decimal.Decimal `json:"gst_rate"`
	StockQuantity *decimal.Decimal `json:"stock_quantity"`
}

// FieldChange is one column assignment of a partial update.
type FieldChange struct {
	Column string
	Value  any
}

// Changes lists the columns set by the update in a stable order.
func (in *UpdateProductInput) Changes() []FieldChange {
	var out []FieldChange
	add := func(set bool, col string, v any) {
		if set {
			out = append(out, FieldChange{Column: col, Value: v})
		}
	}
	add(in.CategoryID != nil, "category_id", in.CategoryID)
	if in.ProductName != nil {
		add(true, "product_name", strings.TrimSpace(*in.ProductName))
	}
	add(in.Description != nil, "description", in.Description)
	add(in.Brand != nil, "brand", in.Brand)
	add(in.SKU != nil, "sku", in.SKU)
	if in.MRP != nil {
		add(true, "mrp", *in.MRP)
	}
	if in.SellingPrice != nil {
		add(true, "selling_price", *in.SellingPrice)
	}
	if in.UnitType != nil {
		add(true, "unit_type", string(*in.UnitType))
	}
	if in.MinStockLevel != nil {
		add(true, "min_stock_level", *in.MinStockLevel)
	}
	add(in.ImageURL != nil, "image_url", in.ImageURL)
	if in.GSTRate != nil {
		add(true, "gst_rate", *in.GSTRate)
	}
	return out
}

func (in *UpdateProductInput) Validate() error {
	if in.ID <= 0 {
		return apperror.Validation("UpdateProduct", "invalid product id")
	}
	if in.StockQuantity != nil {
		return apperror.Validation("UpdateProduct", "stock_quantity can only change through a stock adjustment")
	}
	if len(in.Changes()) == 0 {
		return apperror.Validation("UpdateProduct", "No fields to update")
	}

	var problems []string
	if in.ProductName != nil {
		name := strings.TrimSpace(*in.ProductName)
		if name == "" || len(name) > 255 {
			problems = append(problems, "product_name must be 1-255 characters")
		}
	}
	if in.Brand != nil && len(*in.Brand) > 100 {
		problems = append(problems, "brand must be at most 100 characters")
	}
	if in.SKU != nil && len(*in.SKU) > 100 {
		problems = append(problems, "sku must be at most 100 characters")
	}
	if in.MRP != nil && !in.MRP.IsPositive() {
		problems = append(problems, "mrp must be positive")
	}
	if in.SellingPrice != nil && !in.SellingPrice.IsPositive() {
		problems = append(problems, "selling_price must be positive")
	}
	if in.UnitType != nil && !in.UnitType.Valid() {
		problems = append(problems, "unit_type must be one of kg, gram, liter, ml, piece, dozen, packet")
	}
	if in.MinStockLevel != nil && (in.MinStockLevel.IsNegative() || !model.FitsStockColumn(*in.MinStockLevel)) {
		problems = append(problems, stockProblem("min_stock_level"))
	}
	if in.GSTRate != nil && (in.GSTRate.IsNegative() || in.GSTRate.GreaterThan(maxGSTRate)) {
		problems = append(problems, "gst_rate must be between 0 and 100")
	}
	if len(problems) > 0 {
		return apperror.Validation("UpdateProduct", "Validation error", problems...)
	}
	return nil
}

// Apply copies the set fields onto p. It never touches StockQuantity.
func (in *UpdateProductInput) Apply(p *model.Product) {
	if in.CategoryID != nil {
		p.CategoryID = in.CategoryID
	}
	if in.ProductName != nil {
		p.ProductName = strings.TrimSpace(*in.ProductName)
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.Brand != nil {
		p.Brand = in.Brand
	}
	if in.SKU != nil {
		p.SKU = in.SKU
	}
	if in.MRP != nil {
		p.MRP = decimal.NewNullDecimal(*in.MRP)
	}
	if in.SellingPrice != nil {
		p.SellingPrice = *in.SellingPrice
	}
	if in.UnitType != nil {
		p.UnitType = *in.UnitType
	}
	if in.MinStockLevel != nil {
		p.MinStockLevel = *in.MinStockLevel
	}
	if in.ImageURL != nil {
		p.ImageURL = in.ImageURL
	}
	if in.GSTRate != nil {
		p.GSTRate = *in.GSTRate
	}
}
