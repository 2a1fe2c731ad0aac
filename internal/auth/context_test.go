package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestContextValueWinsOverMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(StoreIDHeader, "from-md", RequestIDHeader, "req-md"))
	if got := GetStoreID(ctx); got != "from-md" {
		t.Errorf("GetStoreID = %q, want from-md", got)
	}

	ctx = WithStoreID(ctx, "from-ctx")
	if got := GetStoreID(ctx); got != "from-ctx" {
		t.Errorf("GetStoreID = %q, want from-ctx", got)
	}
	if got := GetRequestID(ctx); got != "req-md" {
		t.Errorf("GetRequestID = %q, want req-md", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
}

func TestStoreIDOr(t *testing.T) {
	ctx := WithStoreID(context.Background(), "forwarded")
	if got := StoreIDOr(ctx, "query"); got != "query" {
		t.Errorf("explicit store ignored: %q", got)
	}
	if got := StoreIDOr(ctx, ""); got != "forwarded" {
		t.Errorf("forwarded store ignored: %q", got)
	}
}
