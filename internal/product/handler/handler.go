package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/auth"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/pkg/response"
	"github.com/smartcart/product-service/internal/product"
	"github.com/smartcart/product-service/internal/product/dto"
)

const (
	ServiceName    = "SmartCart Product Service"
	ServiceVersion = "1.0.0"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{uc: uc, logger: log}
}

func (h *ProductHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/", h.Info)
	r.Get("/health", h.Health)

	products := r.Group("/products")
	products.Get("/", h.ListProducts)
	products.Get("/search", h.SearchProducts)
	products.Post("/", h.CreateProduct)
	products.Get("/:id<int>", h.GetProduct)
	products.Put("/:id<int>", h.UpdateProduct)
	products.Delete("/:id<int>", h.DeleteProduct)
}

func (h *ProductHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":   ServiceName,
		"status":    "healthy",
		"version":   ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ProductHandler) Health(c *fiber.Ctx) error {
	health := h.uc.Health(c.UserContext())
	status := fiber.StatusOK
	if health.Status == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(health)
}

// GET /products?store_id=&category_id=&search=&in_stock=&page=&limit=
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	filters := &dto.ProductFilters{
		StoreID:     auth.StoreIDOr(c.UserContext(), c.Query("store_id")),
		SearchQuery: c.Query("search"),
		InStock:     c.Query("in_stock") == "true",
		Page:        c.QueryInt("page", 1),
		PageSize:    c.QueryInt("limit", dto.DefaultPageSize),
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return apperror.Validation("ListProducts", "category_id must be an integer")
		}
		filters.CategoryID = &id
	}

	items, total, err := h.uc.ListProducts(c.UserContext(), filters)
	if err != nil {
		return err
	}
	return response.WithFields(c, items, fiber.Map{
		"pagination": dto.NewPagination(filters.Page, filters.PageSize, total),
	})
}

// GET /products/search?q=&store_id=
func (h *ProductHandler) SearchProducts(c *fiber.Ctx) error {
	items, err := h.uc.SearchProducts(c.UserContext(), auth.StoreIDOr(c.UserContext(), c.Query("store_id")), c.Query("q"))
	if err != nil {
		return err
	}
	return response.WithFields(c, items, fiber.Map{"total": len(items)})
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := ParseID(c)
	if err != nil {
		return err
	}
	p, cached, err := h.uc.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return response.WithFields(c, p, fiber.Map{"cached": cached})
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var input dto.CreateProductInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.Validation("CreateProduct", "Invalid request body")
	}
	p, err := h.uc.CreateProduct(c.UserContext(), &input)
	if err != nil {
		return err
	}
	return response.Created(c, p)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := ParseID(c)
	if err != nil {
		return err
	}
	var input dto.UpdateProductInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.Validation("UpdateProduct", "Invalid request body")
	}
	input.ID = id

	p, err := h.uc.UpdateProduct(c.UserContext(), &input)
	if err != nil {
		return err
	}
	return response.OK(c, p)
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := ParseID(c)
	if err != nil {
		return err
	}
	if err := h.uc.DeleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted successfully"})
}

// ParseID reads the :id route parameter as a positive product id.
func ParseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation("", "invalid product id")
	}
	return id, nil
}
