package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	subscriptionService *service.SubscriptionService
}

var _ types.SubscriptionsServiceServer = (*Server)(nil)

func NewServer(subscriptionService *service.SubscriptionService) *Server {
	return &Server{subscriptionService: subscriptionService}
}

func (s *Server) CreateSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := types.NewCreateSubscriptionRequestFromStruct(in)
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.subscriptionService.CreateSubscription(ctx, req)
	if err != nil {
		return nil, toStatusError(ctx, err, "Create subscription failed")
	}
	return toStruct(ctx, resp)
}

func (s *Server) ChargeSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := types.NewShopperReferenceRequestFromStruct(in)
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.subscriptionService.ChargeSubscription(ctx, req)
	if err != nil {
		return nil, toStatusError(ctx, err, "Charge subscription failed")
	}
	return toStruct(ctx, resp)
}

func (s *Server) CancelSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := types.NewShopperReferenceRequestFromStruct(in)
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	token, err := s.subscriptionService.CancelSubscription(ctx, req)
	if err != nil {
		return nil, toStatusError(ctx, err, "Cancel subscription failed")
	}
	return mapper.CancelledToStruct(token), nil
}

func (s *Server) PaymentMethods(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := s.subscriptionService.PaymentMethods(ctx)
	if err != nil {
		return nil, toStatusError(ctx, err, "Payment methods failed")
	}
	return toStruct(ctx, resp)
}

func toStruct(ctx context.Context, data map[string]any) (*structpb.Struct, error) {
	out, err := mapper.MapToStruct(data)
	if err != nil {
		loggerWithContext(ctx).WithError(err).Error("Convert processor response failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func toStatusError(ctx context.Context, err error, message string) error {
	var apiErr *payment.APIError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrTokenNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &apiErr):
		loggerWithContext(ctx).WithError(err).Warn(message)
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return status.Error(codes.FailedPrecondition, apiErr.Message)
		}
		return status.Error(codes.Unavailable, apiErr.Message)
	default:
		loggerWithContext(ctx).WithError(err).Error(message)
		return status.Error(codes.Internal, "internal server error")
	}
}
