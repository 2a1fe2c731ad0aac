package search

import (
	"context"
	"strconv"
	"time"

	"github.com/smartcart/product-service/internal/model"
)

const ProductsIndex = "products"

const productsMapping = `{
	"mappings": {
		"properties": {
			"product_id": { "type": "long" },
			"store_id": { "type": "keyword" },
			"product_name": { "type": "text" },
			"description": { "type": "text" },
			"brand": { "type": "text" },
			"sku": { "type": "keyword" },
			"unit_type": { "type": "keyword" },
			"updated_at": { "type": "date" }
		}
	}
}`

// ProductDocument is the searchable projection of a product. Stock is left
// out so stock adjustments never touch the index.
type ProductDocument struct {
	ProductID   int64     `json:"product_id"`
	StoreID     string    `json:"store_id"`
	ProductName string    `json:"product_name"`
	Description string    `json:"description,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	SKU         string    `json:"sku,omitempty"`
	UnitType    string    `json:"unit_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewProductDocument(p *model.Product) ProductDocument {
	doc := ProductDocument{
		ProductID:   p.ProductID,
		StoreID:     p.StoreID,
		ProductName: p.ProductName,
		UnitType:    string(p.UnitType),
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	if p.Brand != nil {
		doc.Brand = *p.Brand
	}
	if p.SKU != nil {
		doc.SKU = *p.SKU
	}
	return doc
}

// ProductIndex keeps the products index in step with the catalog.
type ProductIndex struct {
	client *Client
}

func NewProductIndex(ctx context.Context, client *Client) (*ProductIndex, error) {
	if err := client.CreateIndex(ctx, ProductsIndex, productsMapping); err != nil {
		return nil, err
	}
	return &ProductIndex{client: client}, nil
}

func (i *ProductIndex) IndexProduct(ctx context.Context, p *model.Product) error {
	return i.client.Index(ctx, ProductsIndex, strconv.FormatInt(p.ProductID, 10), NewProductDocument(p))
}

func (i *ProductIndex) DeleteProduct(ctx context.Context, productID int64) error {
	return i.client.Delete(ctx, ProductsIndex, strconv.FormatInt(productID, 10))
}

// SearchProducts returns matching product ids, best match first.
func (i *ProductIndex) SearchProducts(ctx context.Context, storeID, text string, limit int) ([]int64, error) {
	res, err := i.client.Search(ctx, ProductsIndex, ProductQuery(storeID, text, limit))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ProductQuery builds a store scoped multi_match query.
func ProductQuery(storeID, text string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"multi_match": map[string]interface{}{
							"query":     text,
							"fields":    []string{"product_name^3", "brand^2", "description", "sku"},
							"fuzziness": "AUTO",
						},
					},
				},
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"store_id": storeID}},
				},
			},
		},
	}
}
