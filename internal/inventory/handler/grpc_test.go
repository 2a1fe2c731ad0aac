package handler

import (
	"context"
	"net"
	"testing"

	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialInventoryService(t *testing.T, s services) *grpc.ClientConn {
	t.Helper()
	log := logger.NewNop()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer(grpc.UnaryInterceptor(middleware.ContextInterceptor(log)))
	RegisterInventoryServiceServer(srv, NewGRPCHandler(s.inventory, s.products, log))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+inventoryServiceName+"/"+method, in, out)
	return out, err
}

func TestGRPCAdjustStockAndGetProduct(t *testing.T) {
	s := newServices()
	conn := dialInventoryService(t, s)
	id := s.seed(t, 10, 5)

	out, err := invoke(t, conn, "AdjustStock", map[string]interface{}{
		"product_id":       id,
		"quantity":         -3,
		"transaction_type": "sale",
	})
	if err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	if got := out.Fields["new_stock"].GetStringValue(); got != "7" {
		t.Errorf("new_stock = %q, want 7", got)
	}

	out, err = invoke(t, conn, "GetProduct", map[string]interface{}{"product_id": id})
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	p := out.Fields["product"].GetStructValue()
	if p == nil || p.Fields["stock_quantity"].GetStringValue() != "7" {
		t.Errorf("product %v", p)
	}

	out, err = invoke(t, conn, "ListTransactions", map[string]interface{}{"product_id": id})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if total := out.Fields["total"].GetNumberValue(); total != 2 {
		t.Errorf("total = %v, want 2", total)
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	s := newServices()
	conn := dialInventoryService(t, s)
	id := s.seed(t, 2, 5)

	cases := []struct {
		name   string
		method string
		req    map[string]interface{}
		code   codes.Code
	}{
		{"insufficient", "AdjustStock", map[string]interface{}{"product_id": id, "quantity": -5, "transaction_type": "sale"}, codes.FailedPrecondition},
		{"invalid", "AdjustStock", map[string]interface{}{"product_id": id, "quantity": 0, "transaction_type": "sale"}, codes.InvalidArgument},
		{"missing", "AdjustStock", map[string]interface{}{"product_id": id + 1, "quantity": 1, "transaction_type": "purchase"}, codes.NotFound},
		{"missing product", "GetProduct", map[string]interface{}{"product_id": id + 1}, codes.NotFound},
		{"bad id", "GetProduct", map[string]interface{}{}, codes.InvalidArgument},
		{"bad type filter", "ListTransactions", map[string]interface{}{"product_id": id, "transaction_type": "gift"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := invoke(t, conn, tc.method, tc.req)
			if status.Code(err) != tc.code {
				t.Errorf("code = %v, want %v (%v)", status.Code(err), tc.code, err)
			}
		})
	}
}
