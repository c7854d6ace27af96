package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// StubProcessor answers locally so the service runs without processor
// credentials. Every payment is authorised.
type StubProcessor struct{}

func NewStubProcessor() *StubProcessor {
	return &StubProcessor{}
}

func (s *StubProcessor) PaymentMethods(_ context.Context) (map[string]any, error) {
	return map[string]any{
		"paymentMethods": []any{
			map[string]any{
				"type":   "scheme",
				"name":   "Cards",
				"brands": []any{"visa", "mc", "amex"},
			},
		},
	}, nil
}

func (s *StubProcessor) CreateZeroAuth(_ context.Context, shopperReference string, _ map[string]any) (map[string]any, error) {
	return map[string]any{
		"resultCode":   ResultCodeAuthorised,
		"pspReference": stubReference("PSP"),
		"additionalData": map[string]any{
			RecurringDetailReferenceKey:  stubReference("TOKEN"),
			RecurringShopperReferenceKey: shopperReference,
		},
	}, nil
}

func (s *StubProcessor) ChargeStored(_ context.Context, shopperReference, _ string, amount Amount) (map[string]any, error) {
	return map[string]any{
		"resultCode":       ResultCodeAuthorised,
		"pspReference":     stubReference("PSP"),
		"shopperReference": shopperReference,
		"amount": map[string]any{
			"value":    amount.Value,
			"currency": amount.Currency,
		},
	}, nil
}

func (s *StubProcessor) DisableStored(context.Context, string, string) error {
	return nil
}

func (s *StubProcessor) PaymentDetails(_ context.Context, details map[string]any) (map[string]any, error) {
	inner, _ := details["details"].(map[string]any)
	redirectResult, _ := inner["redirectResult"].(string)
	payload, _ := inner["payload"].(string)
	if strings.TrimSpace(redirectResult) == "" && strings.TrimSpace(payload) == "" {
		return map[string]any{"resultCode": ResultCodeRefused, "refusalReason": "missing redirect result"}, nil
	}
	return map[string]any{"resultCode": ResultCodeAuthorised, "pspReference": stubReference("PSP")}, nil
}

func stubReference(prefix string) string {
	return "STUB-" + prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
