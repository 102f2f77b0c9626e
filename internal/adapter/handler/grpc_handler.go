package handler

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/core/service"
)

const donationServiceName = "donate.v1.DonationService"

// DonationServiceServer is the gRPC surface. Messages are google.protobuf.Struct
// so clients need no generated stubs.
type DonationServiceServer interface {
	SubmitDonation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitCheckoutDonation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDonationServiceServer(s grpc.ServiceRegistrar, srv DonationServiceServer) {
	s.RegisterService(&donationServiceDesc, srv)
}

var donationServiceDesc = grpc.ServiceDesc{
	ServiceName: donationServiceName,
	HandlerType: (*DonationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitDonation", Handler: unaryHandler("SubmitDonation", DonationServiceServer.SubmitDonation)},
		{MethodName: "SubmitCheckoutDonation", Handler: unaryHandler("SubmitCheckoutDonation", DonationServiceServer.SubmitCheckoutDonation)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", DonationServiceServer.GetOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "donate/v1/donation.proto",
}

type structMethod func(DonationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method structMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + donationServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(DonationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(DonationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type GRPCHandler struct {
	svc    Services
	logger *zap.Logger
}

func NewGRPCHandler(svc Services, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, logger: logger}
}

func (h *GRPCHandler) SubmitDonation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID := stringField(req, "session_id")
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	sess := domain.Session{ID: sessionID, StoreID: h.svc.StoreID}

	out, err := h.svc.Form.Submit(ctx, sess, service.DonationFormInput{
		Frequency: stringField(req, "frequency"),
		Amount:    stringField(req, "amount"),
		Memorial:  memorialField(req),
	})
	if err != nil {
		return nil, h.mapError(err)
	}

	resp := map[string]interface{}{"success": true}
	if out.Monthly != nil {
		resp["redirect"] = "monthly_donation"
		resp["amount"] = out.Monthly.Amount.String()
		resp["currency_code"] = out.Monthly.CurrencyCode
		resp["in_memory"] = out.Monthly.Memorial.InMemory
		resp["in_memory_name"] = out.Monthly.Memorial.Name
		resp["in_memory_card"] = out.Monthly.Memorial.CardRequested
	} else {
		resp["redirect"] = "checkout"
		resp["order_id"] = out.OrderID
	}
	return structpb.NewStruct(resp)
}

func (h *GRPCHandler) SubmitCheckoutDonation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := h.svc.Pane.Submit(ctx, orderID, service.PaneInput{
		Donate:   boolField(req, "donate"),
		Amount:   stringField(req, "amount"),
		Memorial: memorialField(req),
	})
	if err != nil {
		return nil, h.mapError(err)
	}

	return orderStruct(order)
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := h.svc.Orders.Load(ctx, orderID)
	if err != nil {
		return nil, h.mapError(err)
	}

	return orderStruct(order)
}

func (h *GRPCHandler) mapError(err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, domain.ErrConcurrentModification):
		return status.Error(codes.Aborted, "order was modified concurrently")
	}
	h.logger.Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func orderStruct(order *domain.Order) (*structpb.Struct, error) {
	total := order.TotalPrice()
	items := make([]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"id":             item.ID,
			"kind":           string(item.Kind),
			"title":          item.Title,
			"amount":         item.UnitPrice.Number.String(),
			"currency_code":  item.UnitPrice.CurrencyCode,
			"quantity":       item.Quantity,
			"in_memory":      item.Memorial.InMemory,
			"in_memory_name": item.Memorial.Name,
			"in_memory_card": item.Memorial.CardRequested,
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"id":            order.ID,
		"currency_code": total.CurrencyCode,
		"total":         total.Number.String(),
		"version":       order.Version,
		"items":         items,
	})
}

func stringField(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func memorialField(s *structpb.Struct) domain.Memorial {
	return domain.Memorial{
		InMemory:      boolField(s, "in_memory"),
		Name:          stringField(s, "in_memory_name"),
		CardRequested: boolField(s, "in_memory_card"),
	}
}
