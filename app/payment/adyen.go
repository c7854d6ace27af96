package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
)

const recurringProcessingModel = "Subscription"

type AdyenConfig struct {
	APIKey          string
	MerchantAccount string
	CheckoutURL     string
	ReturnURL       string
	Currency        string
}

type AdyenProcessor struct {
	cfg        AdyenConfig
	httpClient *http.Client
	logger     logrus.FieldLogger
}

func NewAdyenProcessor(cfg AdyenConfig, httpClient *http.Client) *AdyenProcessor {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	cfg.CheckoutURL = strings.TrimRight(cfg.CheckoutURL, "/")
	return &AdyenProcessor{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     factory.NewModuleLogger("adyen-processor"),
	}
}

func (p *AdyenProcessor) PaymentMethods(ctx context.Context) (map[string]any, error) {
	body := map[string]any{
		"merchantAccount": p.cfg.MerchantAccount,
		"channel":         "Web",
	}
	return p.do(ctx, http.MethodPost, "/paymentMethods", body, "")
}

// CreateZeroAuth stores the shopper's payment method with a zero-value
// authorisation. Fields the checkout UI already set are kept.
func (p *AdyenProcessor) CreateZeroAuth(ctx context.Context, shopperReference string, paymentData map[string]any) (map[string]any, error) {
	body := make(map[string]any, len(paymentData)+8)
	for k, v := range paymentData {
		body[k] = v
	}
	body["merchantAccount"] = p.cfg.MerchantAccount
	body["shopperReference"] = shopperReference
	body["amount"] = Amount{Value: 0, Currency: p.cfg.Currency}
	body["storePaymentMethod"] = true
	body["recurringProcessingModel"] = recurringProcessingModel
	body["shopperInteraction"] = "Ecommerce"
	setDefault(body, "reference", uuid.NewString())
	setDefault(body, "returnUrl", p.cfg.ReturnURL)
	setDefault(body, "channel", "Web")

	return p.do(ctx, http.MethodPost, "/payments", body, "")
}

func (p *AdyenProcessor) ChargeStored(ctx context.Context, shopperReference, recurringDetailReference string, amount Amount) (map[string]any, error) {
	reference := uuid.NewString()
	body := map[string]any{
		"merchantAccount":          p.cfg.MerchantAccount,
		"reference":                reference,
		"amount":                   amount,
		"shopperReference":         shopperReference,
		"shopperInteraction":       "ContAuth",
		"recurringProcessingModel": recurringProcessingModel,
		"paymentMethod": map[string]any{
			"type":                  "scheme",
			"storedPaymentMethodId": recurringDetailReference,
		},
	}
	return p.do(ctx, http.MethodPost, "/payments", body, reference)
}

func (p *AdyenProcessor) DisableStored(ctx context.Context, shopperReference, recurringDetailReference string) error {
	query := url.Values{}
	query.Set("merchantAccount", p.cfg.MerchantAccount)
	query.Set("shopperReference", shopperReference)
	path := "/storedPaymentMethods/" + url.PathEscape(recurringDetailReference) + "?" + query.Encode()

	_, err := p.do(ctx, http.MethodDelete, path, nil, "")
	return err
}

func (p *AdyenProcessor) PaymentDetails(ctx context.Context, details map[string]any) (map[string]any, error) {
	return p.do(ctx, http.MethodPost, "/payments/details", details, "")
}

func (p *AdyenProcessor) do(ctx context.Context, method, path string, body any, idempotencyKey string) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.cfg.CheckoutURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", p.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var errBody struct {
			ErrorCode string `json:"errorCode"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			apiErr.ErrorCode = errBody.ErrorCode
			apiErr.Message = errBody.Message
		}
		p.logger.WithFields(logrus.Fields{
			"method":     method,
			"path":       strings.SplitN(path, "?", 2)[0],
			"status":     resp.StatusCode,
			"error_code": apiErr.ErrorCode,
		}).Warn("Payment processor call failed")
		return nil, apiErr
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	result := make(map[string]any)
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func setDefault(body map[string]any, key string, value any) {
	if existing, ok := body[key]; ok && existing != nil && existing != "" {
		return
	}
	body[key] = value
}
