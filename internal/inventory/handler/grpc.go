package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smartcart/product-service/internal/apperror"
	"github.com/smartcart/product-service/internal/inventory"
	"github.com/smartcart/product-service/internal/inventory/dto"
	"github.com/smartcart/product-service/internal/model"
	"github.com/smartcart/product-service/internal/pkg/logger"
	"github.com/smartcart/product-service/internal/product"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const inventoryServiceName = "smartcart.inventory.v1.InventoryService"

// InventoryServiceServer is the server side of smartcart.inventory.v1.InventoryService.
// Messages are google.protobuf.Struct with the same field names as the HTTP API.
type InventoryServiceServer interface {
	AdjustStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProduct(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var InventoryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AdjustStock", Handler: unaryHandler("AdjustStock", InventoryServiceServer.AdjustStock)},
		{MethodName: "GetProduct", Handler: unaryHandler("GetProduct", InventoryServiceServer.GetProduct)},
		{MethodName: "ListTransactions", Handler: unaryHandler("ListTransactions", InventoryServiceServer.ListTransactions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "smartcart/inventory/v1/inventory.proto",
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryService_ServiceDesc, srv)
}

func unaryHandler(method string, call func(InventoryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + inventoryServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(InventoryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCHandler implements InventoryServiceServer on top of the ledger engine
// and the catalog read path.
type GRPCHandler struct {
	inventory inventory.UseCase
	products  product.UseCase
	logger    logger.ZapLogger
}

func NewGRPCHandler(inv inventory.UseCase, products product.UseCase, log logger.ZapLogger) *GRPCHandler {
	return &GRPCHandler{
		inventory: inv,
		products:  products,
		logger:    log,
	}
}

type adjustStockRequest struct {
	ProductID int64 `json:"product_id"`
	dto.AdjustStockInput
}

func (h *GRPCHandler) AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in adjustStockRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	input := in.AdjustStockInput
	input.ProductID = in.ProductID

	res, err := h.inventory.AdjustStock(ctx, &input)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(res)
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ProductID int64 `json:"product_id"`
	}
	if err := fromStruct(req, &in); err != nil || in.ProductID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid product id")
	}

	p, cached, err := h.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]interface{}{
		"product": p,
		"cached":  cached,
	})
}

func (h *GRPCHandler) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ProductID       int64  `json:"product_id"`
		TransactionType string `json:"transaction_type"`
		Page            int    `json:"page"`
		Limit           int    `json:"limit"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	filters := &dto.TransactionFilters{
		ProductID:       in.ProductID,
		TransactionType: model.TransactionType(in.TransactionType),
		Page:            in.Page,
		PageSize:        in.Limit,
	}

	items, total, err := h.inventory.ListTransactions(ctx, filters)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toStruct(map[string]interface{}{
		"transactions": items,
		"total":        total,
		"page":         filters.Page,
		"limit":        filters.PageSize,
	})
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return status.Error(codes.NotFound, apperror.Message(err))
	case errors.Is(err, apperror.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, apperror.Message(err))
	case errors.Is(err, apperror.ErrValidation):
		msg := apperror.Message(err)
		for _, d := range apperror.DetailsOf(err) {
			msg += "; " + d
		}
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, apperror.ErrTransient):
		return status.Error(codes.Unavailable, apperror.Message(err))
	}
	h.logger.Error("grpc call failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func fromStruct(in *structpb.Struct, dst interface{}) error {
	b, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
