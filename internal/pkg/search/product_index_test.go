package search

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/smartcart/product-service/internal/model"
)

func TestProductQueryScopesToStore(t *testing.T) {
	q := ProductQuery("store-1", "basmati", 20)
	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	for _, want := range []string{`"size":20`, `"store_id":"store-1"`, `"query":"basmati"`, `"product_name^3"`} {
		if !strings.Contains(body, want) {
			t.Errorf("query %s missing %s", body, want)
		}
	}
}

func TestNewProductDocumentFlattensOptionals(t *testing.T) {
	brand := "Tata"
	p := &model.Product{
		ProductID:   4,
		StoreID:     "store-1",
		ProductName: "Salt",
		Brand:       &brand,
		UnitType:    model.UnitKg,
		UpdatedAt:   time.Unix(0, 0),
	}
	doc := NewProductDocument(p)
	if doc.Brand != "Tata" || doc.Description != "" || doc.UnitType != "kg" {
		t.Errorf("unexpected document %+v", doc)
	}

	raw, _ := json.Marshal(doc)
	if strings.Contains(string(raw), "stock") {
		t.Errorf("document must not carry stock: %s", raw)
	}
}
