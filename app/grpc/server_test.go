package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type failingProcessor struct {
	payment.StubProcessor
	err error
}

func (p *failingProcessor) ChargeStored(context.Context, string, string, payment.Amount) (map[string]any, error) {
	return nil, p.err
}

func newTestServer(processor payment.Processor) (*Server, *repository.MemoryTokenRepository) {
	repo := repository.NewMemoryTokenRepository()
	svc := service.NewSubscriptionService(repo, processor, config.SubscriptionConfig{AmountMinor: 999, Currency: "EUR"})
	return NewServer(svc), repo
}

func mustStruct(t *testing.T, data map[string]any) *structpb.Struct {
	t.Helper()
	out, err := structpb.NewStruct(data)
	if err != nil {
		t.Fatalf("struct conversion failed: %v", err)
	}
	return out
}

func TestCreateAndCancelSubscription(t *testing.T) {
	srv, repo := newTestServer(payment.NewStubProcessor())
	ctx := context.Background()

	resp, err := srv.CreateSubscription(ctx, mustStruct(t, map[string]any{
		"paymentMethod":    map[string]any{"type": "scheme"},
		"shopperReference": "shopper-1",
	}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.GetFields()["resultCode"].GetStringValue() != payment.ResultCodeAuthorised {
		t.Fatalf("unexpected response: %v", resp)
	}

	cancelled, err := srv.CancelSubscription(ctx, mustStruct(t, map[string]any{"shopperReference": "shopper-1"}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cancelled.GetFields()["status"].GetStringValue() != "cancelled" {
		t.Fatalf("unexpected cancel response: %v", cancelled)
	}
	if ok, _ := repo.Exists(ctx, "shopper-1"); ok {
		t.Fatal("expected token removed")
	}
}

func TestChargeSubscriptionStatusCodes(t *testing.T) {
	srv, repo := newTestServer(&failingProcessor{err: &payment.APIError{StatusCode: 422, Message: "refused"}})
	ctx := context.Background()
	_ = repo.Store(ctx, &entity.RecurringToken{ShopperReference: "known", RecurringDetailReference: "8315"})

	cases := []struct {
		in   map[string]any
		code codes.Code
	}{
		{map[string]any{}, codes.InvalidArgument},
		{map[string]any{"shopperReference": "unknown"}, codes.NotFound},
		{map[string]any{"shopperReference": "known"}, codes.FailedPrecondition},
	}
	for _, tc := range cases {
		_, err := srv.ChargeSubscription(ctx, mustStruct(t, tc.in))
		if status.Code(err) != tc.code {
			t.Fatalf("input %v: expected %s, got %v", tc.in, tc.code, err)
		}
	}
}

func TestChargeSubscriptionProcessorUnavailable(t *testing.T) {
	srv, repo := newTestServer(&failingProcessor{err: &payment.APIError{StatusCode: 503, Message: "down"}})
	_ = repo.Store(context.Background(), &entity.RecurringToken{ShopperReference: "known", RecurringDetailReference: "8315"})

	_, err := srv.ChargeSubscription(context.Background(), mustStruct(t, map[string]any{"shopperReference": "known"}))
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestCreateSubscriptionInvalidArgument(t *testing.T) {
	srv, _ := newTestServer(payment.NewStubProcessor())

	_, err := srv.CreateSubscription(context.Background(), mustStruct(t, map[string]any{"shopperReference": "s"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestServiceDescRoundTrip(t *testing.T) {
	srv, _ := newTestServer(payment.NewStubProcessor())

	lis := bufconn.Listen(1 << 20)
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(), RequestIDInterceptor(), LoggingInterceptor()))
	types.RegisterSubscriptionsServiceServer(grpcSrv, srv)
	go func() { _ = grpcSrv.Serve(lis) }()
	defer grpcSrv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	out := new(structpb.Struct)
	method := types.SubscriptionsServiceFullMethod(types.SubscriptionsServicePaymentMethodsMethod)
	if err := conn.Invoke(context.Background(), method, &structpb.Struct{}, out); err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if _, ok := out.GetFields()["paymentMethods"]; !ok {
		t.Fatalf("unexpected response: %v", out)
	}
}
