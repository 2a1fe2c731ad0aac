package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/smartcart/product-service/internal/auth"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestRequestLoggerPropagatesIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(RequestLogger(logger.FromZap(zap.New(core))))

	var seenStore, seenRequest string
	app.Get("/ping", func(c *fiber.Ctx) error {
		seenStore = auth.GetStoreID(c.UserContext())
		seenRequest = auth.GetRequestID(c.UserContext())
		return c.SendString("pong")
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(auth.StoreIDHeader, "store-7")
	req.Header.Set(fiber.HeaderXRequestID, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if seenStore != "store-7" || seenRequest != "req-1" {
		t.Errorf("context carried store=%q request=%q", seenStore, seenRequest)
	}
	if got := resp.Header.Get(fiber.HeaderXRequestID); got != "req-1" {
		t.Errorf("response request id = %q", got)
	}
	if logs.FilterMessage("http request").Len() != 1 {
		t.Errorf("expected one access log line, got %d", logs.Len())
	}
}

func TestRequestLoggerRendersErrors(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(logger.NewNop()))
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTeapot {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestContextInterceptor(t *testing.T) {
	interceptor := ContextInterceptor(logger.NewNop())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(auth.StoreIDHeader, "store-9"))

	var gotStore, gotRequest string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"}, func(ctx context.Context, req interface{}) (interface{}, error) {
		gotStore = auth.GetStoreID(ctx)
		gotRequest = auth.GetRequestID(ctx)
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected handler error to pass through")
	}
	if gotStore != "store-9" || gotRequest == "" {
		t.Errorf("store=%q request=%q", gotStore, gotRequest)
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(RequestLogger(logger.NewNop()), RequestTimeout(50*time.Millisecond))

	var hasDeadline bool
	var waitErr error
	app.Get("/wait", func(c *fiber.Ctx) error {
		_, hasDeadline = c.UserContext().Deadline()
		<-c.UserContext().Done()
		waitErr = c.UserContext().Err()
		return c.SendStatus(fiber.StatusServiceUnavailable)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/wait", nil), 2000)
	if err != nil {
		t.Fatal(err)
	}
	if !hasDeadline || !errors.Is(waitErr, context.DeadlineExceeded) {
		t.Errorf("deadline=%v err=%v", hasDeadline, waitErr)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestTimeoutInterceptor(t *testing.T) {
	interceptor := TimeoutInterceptor(time.Minute)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/M"}

	var got time.Time
	capture := func(ctx context.Context, req interface{}) (interface{}, error) {
		got, _ = ctx.Deadline()
		return nil, nil
	}

	_, _ = interceptor(context.Background(), nil, info, capture)
	if got.IsZero() {
		t.Fatal("expected a deadline when the client sent none")
	}

	want := time.Now().Add(time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), want)
	defer cancel()
	_, _ = interceptor(ctx, nil, info, capture)
	if !got.Equal(want) {
		t.Errorf("client deadline replaced: got %v want %v", got, want)
	}
}
