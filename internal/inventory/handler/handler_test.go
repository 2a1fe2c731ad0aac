package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/smartcart/product-service/internal/inventory"
	invrepo "github.com/smartcart/product-service/internal/inventory/repository"
	invuc "github.com/smartcart/product-service/internal/inventory/usecase"
	"github.com/smartcart/product-service/internal/pkg/cache"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/pkg/memdb"
	"github.com/smartcart/product-service/internal/pkg/response"
	"github.com/smartcart/product-service/internal/product"
	productdto "github.com/smartcart/product-service/internal/product/dto"
	producthandler "github.com/smartcart/product-service/internal/product/handler"
	productrepo "github.com/smartcart/product-service/internal/product/repository"
	productuc "github.com/smartcart/product-service/internal/product/usecase"
)

const testStore = "8f14e45f-ceea-467f-a2f5-2a3d5f1b9c10"

type services struct {
	inventory inventory.UseCase
	products  product.UseCase
}

func newServices() services {
	log := logger.NewNop()
	db := memdb.New()
	c := cache.NewMemoryProductCache()
	return services{
		inventory: invuc.NewInventoryUseCase(invrepo.NewMemoryRepository(db), c, nil, log),
		products:  productuc.NewProductUseCase(productrepo.NewMemoryRepository(db), c, nil, log, 0),
	}
}

func newApp(s services) *fiber.App {
	log := logger.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(log)})
	NewInventoryHandler(s.inventory, log).RegisterRoutes(app)
	producthandler.NewProductHandler(s.products, log).RegisterRoutes(app)
	return app
}

func (s services) seed(t *testing.T, stock, minLevel int64) int64 {
	t.Helper()
	qty := decimal.NewFromInt(stock)
	price := decimal.NewFromInt(50)
	threshold := decimal.NewFromInt(minLevel)
	p, err := s.products.CreateProduct(context.Background(), &productdto.CreateProductInput{
		StoreID:       testStore,
		ProductName:   "Sugar",
		SellingPrice:  &price,
		StockQuantity: &qty,
		UnitType:      "kg",
		MinStockLevel: &threshold,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p.ProductID
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Total      *int            `json:"total"`
	Pagination *struct {
		Total int `json:"total"`
	} `json:"pagination"`
	Error *struct {
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func stockPath(id int64, suffix string) string {
	return "/products/" + strconv.FormatInt(id, 10) + suffix
}

func TestAdjustStockRoute(t *testing.T) {
	s := newServices()
	app := newApp(s)
	id := s.seed(t, 10, 5)

	status, env := do(t, app, http.MethodPost, stockPath(id, "/stock"), `{"quantity": -3, "transaction_type": "sale", "notes": "counter"}`)
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("sale: status %d env %+v", status, env)
	}
	var res struct {
		ProductID     int64           `json:"product_id"`
		PreviousStock decimal.Decimal `json:"previous_stock"`
		NewStock      decimal.Decimal `json:"new_stock"`
		TransactionID string          `json:"transaction_id"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, env.Data)
	}
	if res.ProductID != id || !res.PreviousStock.Equal(decimal.NewFromInt(10)) || !res.NewStock.Equal(decimal.NewFromInt(7)) || res.TransactionID == "" {
		t.Errorf("unexpected result %+v", res)
	}

	status, env = do(t, app, http.MethodPost, stockPath(id, "/stock"), `{"quantity": -20, "transaction_type": "sale"}`)
	if status != fiber.StatusBadRequest || env.Error == nil {
		t.Fatalf("oversell: status %d env %+v", status, env)
	}
	if env.Error.Message != "Insufficient stock. Available: 7, requested: 20" {
		t.Errorf("message %q", env.Error.Message)
	}

	status, env = do(t, app, http.MethodGet, stockPath(id, ""), "")
	var p struct {
		StockQuantity decimal.Decimal `json:"stock_quantity"`
	}
	_ = json.Unmarshal(env.Data, &p)
	if status != fiber.StatusOK || !p.StockQuantity.Equal(decimal.NewFromInt(7)) {
		t.Errorf("read after sale: status %d stock %s", status, p.StockQuantity)
	}
}

func TestAdjustStockRouteErrors(t *testing.T) {
	s := newServices()
	app := newApp(s)
	id := s.seed(t, 10, 5)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"wrong sign", stockPath(id, "/stock"), `{"quantity": 5, "transaction_type": "sale"}`, fiber.StatusBadRequest},
		{"unknown type", stockPath(id, "/stock"), `{"quantity": 5, "transaction_type": "gift"}`, fiber.StatusBadRequest},
		{"bad body", stockPath(id, "/stock"), `{"quantity": "lots"`, fiber.StatusBadRequest},
		{"too precise", stockPath(id, "/stock"), `{"quantity": -0.0015, "transaction_type": "sale"}`, fiber.StatusBadRequest},
		{"beyond column", stockPath(id, "/stock"), `{"quantity": 10000000000, "transaction_type": "purchase"}`, fiber.StatusBadRequest},
		{"missing product", stockPath(id+100, "/stock"), `{"quantity": 5, "transaction_type": "purchase"}`, fiber.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, app, http.MethodPost, tc.path, tc.body)
			if status != tc.status || env.Success {
				t.Errorf("status %d env %+v", status, env)
			}
		})
	}

	_, env := do(t, app, http.MethodGet, stockPath(id, "/transactions"), "")
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Errorf("rejected adjustments must not reach the ledger, got %+v", env.Pagination)
	}
}

func TestTransactionsAndReconcileRoutes(t *testing.T) {
	s := newServices()
	app := newApp(s)
	id := s.seed(t, 10, 5)

	do(t, app, http.MethodPost, stockPath(id, "/stock"), `{"quantity": 4, "transaction_type": "purchase"}`)
	do(t, app, http.MethodPost, stockPath(id, "/stock"), `{"quantity": -1, "transaction_type": "damage"}`)

	status, env := do(t, app, http.MethodGet, stockPath(id, "/transactions"), "")
	if status != fiber.StatusOK || env.Pagination == nil || env.Pagination.Total != 3 {
		t.Fatalf("transactions: status %d env %+v", status, env)
	}
	var entries []struct {
		TransactionType string `json:"transaction_type"`
	}
	_ = json.Unmarshal(env.Data, &entries)
	if len(entries) != 3 || entries[0].TransactionType != "damage" {
		t.Errorf("expected newest first, got %+v", entries)
	}

	_, env = do(t, app, http.MethodGet, stockPath(id, "/transactions?transaction_type=purchase"), "")
	if env.Pagination == nil || env.Pagination.Total != 1 {
		t.Errorf("filtered total %+v", env.Pagination)
	}

	status, env = do(t, app, http.MethodGet, stockPath(id, "/stock/reconcile"), "")
	var rec struct {
		Consistent bool            `json:"consistent"`
		LedgerSum  decimal.Decimal `json:"ledger_sum"`
	}
	_ = json.Unmarshal(env.Data, &rec)
	if status != fiber.StatusOK || !rec.Consistent || !rec.LedgerSum.Equal(decimal.NewFromInt(13)) {
		t.Errorf("reconcile: status %d rec %+v", status, rec)
	}
}

func TestLowStockRoute(t *testing.T) {
	s := newServices()
	app := newApp(s)
	s.seed(t, 50, 5)
	low := s.seed(t, 2, 10)

	status, env := do(t, app, http.MethodGet, "/products/low-stock?store_id="+testStore, "")
	if status != fiber.StatusOK || env.Total == nil || *env.Total != 1 {
		t.Fatalf("low stock: status %d env %+v", status, env)
	}
	var items []struct {
		ProductID int64           `json:"product_id"`
		Shortage  decimal.Decimal `json:"shortage"`
	}
	_ = json.Unmarshal(env.Data, &items)
	if items[0].ProductID != low || !items[0].Shortage.Equal(decimal.NewFromInt(8)) {
		t.Errorf("unexpected items %+v", items)
	}

	status, _ = do(t, app, http.MethodGet, "/products/low-stock", "")
	if status != fiber.StatusBadRequest {
		t.Errorf("missing store: status %d", status)
	}
}
