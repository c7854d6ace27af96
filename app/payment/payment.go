package payment

import (
	"context"
	"fmt"
)

const (
	ResultCodeAuthorised = "Authorised"
	ResultCodeRefused    = "Refused"
	ResultCodePending    = "Pending"
	ResultCodeReceived   = "Received"

	RecurringDetailReferenceKey  = "recurring.recurringDetailReference"
	RecurringShopperReferenceKey = "recurring.shopperReference"
)

// Amount is expressed in minor units of Currency.
type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// Processor is the payment platform the service delegates tokenisation and
// charging to. Responses are returned as decoded JSON objects.
type Processor interface {
	PaymentMethods(ctx context.Context) (map[string]any, error)
	CreateZeroAuth(ctx context.Context, shopperReference string, paymentData map[string]any) (map[string]any, error)
	ChargeStored(ctx context.Context, shopperReference, recurringDetailReference string, amount Amount) (map[string]any, error)
	DisableStored(ctx context.Context, shopperReference, recurringDetailReference string) error
	PaymentDetails(ctx context.Context, details map[string]any) (map[string]any, error)
}

// APIError is a non-2xx answer from the processor.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("payment processor returned %d (%s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("payment processor returned %d: %s", e.StatusCode, e.Message)
}

// RecurringDetailReference extracts the stored payment method id from a
// payment response, if the processor already issued it.
func RecurringDetailReference(response map[string]any) string {
	additional, ok := response["additionalData"].(map[string]any)
	if !ok {
		return ""
	}
	ref, _ := additional[RecurringDetailReferenceKey].(string)
	return ref
}
