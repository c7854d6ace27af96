package types

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const SubscriptionsServiceName = "checkout.SubscriptionsService"

const (
	SubscriptionsServiceCreateSubscriptionMethod = "CreateSubscription"
	SubscriptionsServiceChargeSubscriptionMethod = "ChargeSubscription"
	SubscriptionsServiceCancelSubscriptionMethod = "CancelSubscription"
	SubscriptionsServicePaymentMethodsMethod     = "PaymentMethods"
)

// SubscriptionsServiceServer exchanges google.protobuf.Struct messages so the
// processor's JSON passes through without a fixed schema.
type SubscriptionsServiceServer interface {
	CreateSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ChargeSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CancelSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PaymentMethods(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(srv SubscriptionsServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

var SubscriptionsServiceDesc = grpc.ServiceDesc{
	ServiceName: SubscriptionsServiceName,
	HandlerType: (*SubscriptionsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		structMethod(SubscriptionsServiceCreateSubscriptionMethod, SubscriptionsServiceServer.CreateSubscription),
		structMethod(SubscriptionsServiceChargeSubscriptionMethod, SubscriptionsServiceServer.ChargeSubscription),
		structMethod(SubscriptionsServiceCancelSubscriptionMethod, SubscriptionsServiceServer.CancelSubscription),
		structMethod(SubscriptionsServicePaymentMethodsMethod, SubscriptionsServiceServer.PaymentMethods),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterSubscriptionsServiceServer(s grpc.ServiceRegistrar, srv SubscriptionsServiceServer) {
	s.RegisterService(&SubscriptionsServiceDesc, srv)
}

// SubscriptionsServiceFullMethod returns the invocation path of a method.
func SubscriptionsServiceFullMethod(method string) string {
	return "/" + SubscriptionsServiceName + "/" + method
}

func structMethod(name string, call structCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(SubscriptionsServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: SubscriptionsServiceFullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func NewCreateSubscriptionRequestFromStruct(in *structpb.Struct) *CreateSubscriptionRequest {
	if in == nil {
		return &CreateSubscriptionRequest{}
	}
	return &CreateSubscriptionRequest{PaymentData: in.AsMap()}
}

func NewShopperReferenceRequestFromStruct(in *structpb.Struct) *ShopperReferenceRequest {
	value := in.GetFields()["shopperReference"]
	return &ShopperReferenceRequest{ShopperReference: strings.TrimSpace(value.GetStringValue())}
}
