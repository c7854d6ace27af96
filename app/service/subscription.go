package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

const (
	RenewalAuthorised = "authorised"
	RenewalRefused    = "refused"
	RenewalFailed     = "failed"
)

type createSubscriptionRequest interface {
	GetPaymentData() map[string]any
}

type shopperReferenceRequest interface {
	GetShopperReference() string
}

type redirectRequest interface {
	GetRedirectResult() string
	GetPayload() string
}

type tokenRepository interface {
	Store(ctx context.Context, token *entity.RecurringToken) error
	Find(ctx context.Context, shopperReference string) (*entity.RecurringToken, error)
	Delete(ctx context.Context, shopperReference string) (bool, error)
	List(ctx context.Context) ([]*entity.RecurringToken, error)
}

type renewalObserver interface {
	ObserveRenewal(result string)
}

// RenewalReport summarises one pass of the renewal job.
type RenewalReport struct {
	Attempted  int
	Authorised int
	Refused    int
	Failed     int
}

type SubscriptionService struct {
	tokenRepo tokenRepository
	processor payment.Processor
	cfg       config.SubscriptionConfig
	observer  renewalObserver
	logger    logrus.FieldLogger
}

func NewSubscriptionService(tokenRepo tokenRepository, processor payment.Processor, cfg config.SubscriptionConfig) *SubscriptionService {
	return &SubscriptionService{
		tokenRepo: tokenRepo,
		processor: processor,
		cfg:       cfg,
		logger:    factory.NewModuleLogger("subscription-service"),
	}
}

// WithRenewalObserver reports every renewal charge result to observer.
func (s *SubscriptionService) WithRenewalObserver(observer renewalObserver) *SubscriptionService {
	s.observer = observer
	return s
}

func (s *SubscriptionService) PaymentMethods(ctx context.Context) (map[string]any, error) {
	return s.processor.PaymentMethods(ctx)
}

// CreateSubscription tokenises the shopper's payment method with a zero-value
// authorisation. When the processor already returns the recurring detail
// reference it is stored right away; otherwise it arrives with the
// RECURRING_CONTRACT webhook.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, req createSubscriptionRequest) (map[string]any, error) {
	data := req.GetPaymentData()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: payment data is required", ErrInvalidRequest)
	}

	shopperReference, _ := data["shopperReference"].(string)
	shopperReference = strings.TrimSpace(shopperReference)
	if shopperReference == "" {
		shopperReference = "shopper-" + uuid.NewString()
	}

	resp, err := s.processor.CreateZeroAuth(ctx, shopperReference, data)
	if err != nil {
		return nil, err
	}

	if ref := payment.RecurringDetailReference(resp); ref != "" {
		token := &entity.RecurringToken{ShopperReference: shopperReference, RecurringDetailReference: ref}
		if err := s.tokenRepo.Store(ctx, token); err != nil {
			return nil, err
		}
		s.logger.WithField("shopper_reference", shopperReference).Info("Stored recurring token from payment response")
	}

	if resp == nil {
		resp = map[string]any{}
	}
	if _, ok := resp["shopperReference"]; !ok {
		resp["shopperReference"] = shopperReference
	}
	return resp, nil
}

// ChargeSubscription charges the configured subscription amount against the
// shopper's stored payment method.
func (s *SubscriptionService) ChargeSubscription(ctx context.Context, req shopperReferenceRequest) (map[string]any, error) {
	token, err := s.findToken(ctx, req.GetShopperReference())
	if err != nil {
		return nil, err
	}
	return s.processor.ChargeStored(ctx, token.ShopperReference, token.RecurringDetailReference, s.amount())
}

// CancelSubscription disables the stored payment method at the processor and
// forgets the token.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, req shopperReferenceRequest) (*entity.RecurringToken, error) {
	token, err := s.findToken(ctx, req.GetShopperReference())
	if err != nil {
		return nil, err
	}
	if err := s.processor.DisableStored(ctx, token.ShopperReference, token.RecurringDetailReference); err != nil {
		return nil, err
	}

	deleted, err := s.tokenRepo.Delete(ctx, token.ShopperReference)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

func (s *SubscriptionService) PaymentDetails(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if _, ok := payload["details"].(map[string]any); !ok {
		return nil, fmt.Errorf("%w: details are required", ErrInvalidRequest)
	}
	return s.processor.PaymentDetails(ctx, payload)
}

// ResolveRedirect submits what the shopper came back with. redirectResult
// wins over the legacy payload; each goes under its own details key.
func (s *SubscriptionService) ResolveRedirect(ctx context.Context, req redirectRequest) (map[string]any, error) {
	details := map[string]any{}
	if redirectResult := strings.TrimSpace(req.GetRedirectResult()); redirectResult != "" {
		details["redirectResult"] = redirectResult
	} else if payload := strings.TrimSpace(req.GetPayload()); payload != "" {
		details["payload"] = payload
	} else {
		return nil, fmt.Errorf("%w: redirectResult or payload is required", ErrInvalidRequest)
	}
	return s.PaymentDetails(ctx, map[string]any{"details": details})
}

func (s *SubscriptionService) ListTokens(ctx context.Context) ([]*entity.RecurringToken, error) {
	return s.tokenRepo.List(ctx)
}

// RunRenewalBatch charges every stored token once. A failed charge is logged
// and counted; it never stops the batch.
func (s *SubscriptionService) RunRenewalBatch(ctx context.Context) (RenewalReport, error) {
	var report RenewalReport

	tokens, err := s.tokenRepo.List(ctx)
	if err != nil {
		return report, err
	}

	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++

		logger := s.logger.WithField("shopper_reference", token.ShopperReference)
		resp, err := s.chargeSafely(ctx, token)
		result := renewalResult(resp, err)
		switch result {
		case RenewalAuthorised:
			report.Authorised++
			logger.Info("Renewal charge authorised")
		case RenewalRefused:
			report.Refused++
			logger.WithField("result_code", resp["resultCode"]).Warn("Renewal charge refused")
		default:
			report.Failed++
			logger.WithError(err).Error("Renewal charge failed")
		}
		if s.observer != nil {
			s.observer.ObserveRenewal(result)
		}
	}

	return report, nil
}

func (s *SubscriptionService) findToken(ctx context.Context, shopperReference string) (*entity.RecurringToken, error) {
	shopperReference = strings.TrimSpace(shopperReference)
	if shopperReference == "" {
		return nil, fmt.Errorf("%w: shopperReference is required", ErrInvalidRequest)
	}
	token, err := s.tokenRepo.Find(ctx, shopperReference)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

func (s *SubscriptionService) amount() payment.Amount {
	return payment.Amount{Value: s.cfg.AmountMinor, Currency: s.cfg.Currency}
}

func (s *SubscriptionService) chargeSafely(ctx context.Context, token *entity.RecurringToken) (resp map[string]any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			resp = nil
			err = fmt.Errorf("payment processor panic: %v", recovered)
		}
	}()

	chargeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.processor.ChargeStored(chargeCtx, token.ShopperReference, token.RecurringDetailReference, s.amount())
}

func renewalResult(resp map[string]any, err error) string {
	if err != nil {
		return RenewalFailed
	}
	code, _ := resp["resultCode"].(string)
	switch code {
	case payment.ResultCodeAuthorised, payment.ResultCodeReceived, payment.ResultCodePending:
		return RenewalAuthorised
	case "":
		return RenewalFailed
	default:
		return RenewalRefused
	}
}
