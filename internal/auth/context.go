// Package auth carries caller identity through a request context. The service
// does not authenticate; it only propagates what the gateway forwarded.
package auth

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	storeIDKey   contextKey = "store_id"
	requestIDKey contextKey = "request_id"

	StoreIDHeader   = "x-store-id"
	RequestIDHeader = "x-request-id"
)

func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetStoreID returns the store forwarded by the caller, from the context or
// incoming gRPC metadata.
func GetStoreID(ctx context.Context) string {
	return lookup(ctx, storeIDKey, StoreIDHeader)
}

func GetRequestID(ctx context.Context) string {
	return lookup(ctx, requestIDKey, RequestIDHeader)
}

func lookup(ctx context.Context, key contextKey, header string) string {
	// Check if added to context by interceptor
	if val, ok := ctx.Value(key).(string); ok && val != "" {
		return val
	}

	// Fallback to metadata
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(header); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// StoreIDOr returns explicit when set, otherwise the forwarded store.
func StoreIDOr(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return GetStoreID(ctx)
}
