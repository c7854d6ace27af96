// Package client is the shopper-side counterpart of the checkout service: it
// issues the subscription create, charge and cancel calls and drives the
// hosted checkout flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
)

const (
	CreateSubscriptionPath = "/api/subscription-create"
	ChargeSubscriptionPath = "/api/subscription-payment"
	CancelSubscriptionPath = "/api/subscription-cancel"
	PaymentMethodsPath     = "/api/paymentMethods"
	PaymentDetailsPath     = "/api/payments/details"
)

// PaymentData is the payment-method state collected by the checkout UI. It is
// forwarded to the backend as-is.
type PaymentData map[string]any

// SubscriptionResult is the decoded JSON body of a backend response.
type SubscriptionResult map[string]any

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	ClientKey  string
	HTTPClient HTTPDoer
	Logger     logrus.FieldLogger
}

// SubscriptionClient holds no mutable state and is safe for concurrent use.
// It never retries and imposes no timeout beyond the caller's context.
type SubscriptionClient struct {
	baseURL    string
	clientKey  string
	httpClient HTTPDoer
	logger     logrus.FieldLogger
}

func New(cfg Config) *SubscriptionClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = factory.NewModuleLogger("subscription-client")
	}

	return &SubscriptionClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		clientKey:  cfg.ClientKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *SubscriptionClient) ClientKey() string {
	return c.clientKey
}

func (c *SubscriptionClient) CreateSubscription(ctx context.Context, paymentData PaymentData) (SubscriptionResult, error) {
	l := factory.WithOperation(c.logger, "create_subscription").WithField("payment_data", paymentData)
	l.Info("Creating subscription")

	result, err := c.post(ctx, CreateSubscriptionPath, paymentData)
	if err != nil {
		l.WithError(err).Error("Create subscription failed")
		return nil, err
	}

	l.WithField("result", result).Info("Subscription creation result")
	return result, nil
}

func (c *SubscriptionClient) ChargeSubscription(ctx context.Context, shopperReference string) (SubscriptionResult, error) {
	l := factory.WithOperation(c.logger, "charge_subscription").WithField("shopper_reference", shopperReference)
	l.Info("Charging subscription")

	result, err := c.post(ctx, ChargeSubscriptionPath, shopperReferenceBody{ShopperReference: shopperReference})
	if err != nil {
		l.WithError(err).Error("Charge subscription failed")
		return nil, err
	}

	l.WithField("result", result).Info("Subscription payment result")
	return result, nil
}

func (c *SubscriptionClient) CancelSubscription(ctx context.Context, shopperReference string) (SubscriptionResult, error) {
	l := factory.WithOperation(c.logger, "cancel_subscription").WithField("shopper_reference", shopperReference)
	l.Info("Canceling subscription")

	result, err := c.post(ctx, CancelSubscriptionPath, shopperReferenceBody{ShopperReference: shopperReference})
	if err != nil {
		l.WithError(err).Error("Cancel subscription failed")
		return nil, err
	}

	l.WithField("result", result).Info("Subscription cancellation result")
	return result, nil
}

func (c *SubscriptionClient) PaymentMethods(ctx context.Context) (SubscriptionResult, error) {
	l := factory.WithOperation(c.logger, "payment_methods")

	result, err := c.post(ctx, PaymentMethodsPath, struct{}{})
	if err != nil {
		l.WithError(err).Error("Fetch payment methods failed")
		return nil, err
	}
	return result, nil
}

// PaymentDetails submits the redirect result returned to the shopper after an
// off-site authentication step.
func (c *SubscriptionClient) PaymentDetails(ctx context.Context, redirectResult string) (SubscriptionResult, error) {
	l := factory.WithOperation(c.logger, "payment_details")

	body := map[string]any{"details": map[string]string{"redirectResult": redirectResult}}
	result, err := c.post(ctx, PaymentDetailsPath, body)
	if err != nil {
		l.WithError(err).Error("Submit payment details failed")
		return nil, err
	}
	return result, nil
}

// post does not look at the status code: any JSON body is a result.
func (c *SubscriptionClient) post(ctx context.Context, path string, body any) (SubscriptionResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result SubscriptionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type shopperReferenceBody struct {
	ShopperReference string `json:"shopperReference"`
}

// IsRequestError reports whether err is a transport or response decoding
// failure as returned by the client operations.
func IsRequestError(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return true
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return true
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
