// Package response renders the JSON envelope shared by every HTTP route.
package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": data})
}

// WithFields adds top level keys next to data, e.g. cached or pagination.
func WithFields(c *fiber.Ctx, data interface{}, fields fiber.Map) error {
	body := fiber.Map{"success": true, "data": data}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(body)
}

func Fail(c *fiber.Ctx, status int, message string, details ...string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   ErrorBody{Message: message, Details: details},
	})
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperror.ErrInsufficientStock), errors.Is(err, apperror.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperror.ErrTransient):
		return fiber.StatusServiceUnavailable
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is installed as fiber.Config.ErrorHandler so handlers can just
// return the use case error.
func ErrorHandler(log logger.ZapLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusCode(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			return Fail(c, status, fe.Message)
		case status == fiber.StatusInternalServerError:
			return Fail(c, status, "Internal server error")
		}
		return Fail(c, status, apperror.Message(err), apperror.DetailsOf(err)...)
	}
}
