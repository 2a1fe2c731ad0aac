package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/auth"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/pkg/response"
)

// InventoryHandler serves the stock routes over HTTP.
type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) RegisterRoutes(r fiber.Router) {
	products := r.Group("/products")
	products.Get("/low-stock", h.ListLowStock)
	products.Post("/:id<int>/stock", h.AdjustStock)
	products.Get("/:id<int>/stock/reconcile", h.ReconcileStock)
	products.Get("/:id<int>/transactions", h.ListTransactions)
}

// POST /products/:id/stock {quantity, transaction_type, notes?}
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var input dto.AdjustStockInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.Validation("AdjustStock", "Invalid request body")
	}
	input.ProductID = id

	res, err := h.uc.AdjustStock(c.UserContext(), &input)
	if err != nil {
		return err
	}
	return response.OK(c, res)
}

// GET /products/:id/transactions?transaction_type=&page=&limit=
func (h *InventoryHandler) ListTransactions(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	filters := &dto.TransactionFilters{
		ProductID:       id,
		TransactionType: model.TransactionType(c.Query("transaction_type")),
		Page:            c.QueryInt("page", 1),
		PageSize:        c.QueryInt("limit", dto.DefaultPageSize),
	}

	items, total, err := h.uc.ListTransactions(c.UserContext(), filters)
	if err != nil {
		return err
	}
	return response.WithFields(c, items, fiber.Map{
		"pagination": fiber.Map{
			"page":  filters.Page,
			"limit": filters.PageSize,
			"total": total,
		},
	})
}

func (h *InventoryHandler) ReconcileStock(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rec, err := h.uc.ReconcileStock(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.OK(c, rec)
}

// GET /products/low-stock?store_id=
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	items, err := h.uc.ListLowStock(c.UserContext(), auth.StoreIDOr(c.UserContext(), c.Query("store_id")))
	if err != nil {
		return err
	}
	return response.WithFields(c, items, fiber.Map{"total": len(items)})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("", "invalid product id")
	}
	return id, nil
}
