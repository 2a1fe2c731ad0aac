package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/smartcart/product-service/internal/auth"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ContextInterceptor copies x-request-id and x-store-id from incoming metadata
// into the context and logs every unary call.
func ContextInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := auth.GetRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = auth.WithRequestID(ctx, requestID)
		if storeID := auth.GetStoreID(ctx); storeID != "" {
			ctx = auth.WithStoreID(ctx, storeID)
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(auth.RequestIDHeader, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("request_id", requestID),
			zap.Duration("latency", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			log.Warn("grpc call failed", append(fields, zap.Error(err))...)
		} else {
			log.Info("grpc call", fields...)
		}
		return resp, err
	}
}

// RequestLogger assigns a request id, exposes it and the forwarded store id
// through c.UserContext(), and logs the completed request.
func RequestLogger(log logger.ZapLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		ctx := auth.WithRequestID(c.UserContext(), requestID)
		if storeID := c.Get(auth.StoreIDHeader); storeID != "" {
			ctx = auth.WithStoreID(ctx, storeID)
		}
		c.SetUserContext(ctx)

		err := c.Next()
		if err != nil {
			// Render now so the logged status is the one sent.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}

		log.Info("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.String("request_id", requestID),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}

// RequestTimeout bounds c.UserContext() by d so lock waits and store calls
// made by the handler cannot outlive the request. d <= 0 disables it.
func RequestTimeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// TimeoutInterceptor applies d to calls whose client sent no deadline.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := ctx.Deadline(); ok || d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}
