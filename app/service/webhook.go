package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/events"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/notification"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
)

type webhookObserver interface {
	ObserveWebhook(eventCode string)
}

type WebhookService struct {
	tokenRepo tokenRepository
	publisher events.Publisher
	hmacKey   string
	observer  webhookObserver
	logger    logrus.FieldLogger
}

// NewWebhookService builds the notification handler. An empty hmacKey skips
// signature validation.
// publishTimeout caps the time one event may hold up the webhook response.
const publishTimeout = 2 * time.Second

func NewWebhookService(tokenRepo tokenRepository, publisher events.Publisher, hmacKey string) *WebhookService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WebhookService{
		tokenRepo: tokenRepo,
		publisher: publisher,
		hmacKey:   hmacKey,
		logger:    factory.NewModuleLogger("webhook-service"),
	}
}

func (s *WebhookService) WithObserver(observer webhookObserver) *WebhookService {
	s.observer = observer
	return s
}

// HandleNotification verifies and processes every item of a webhook batch.
// All signatures are checked before any item is processed.
func (s *WebhookService) HandleNotification(ctx context.Context, payload []byte) error {
	req, err := notification.Parse(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	items := req.Items()

	if s.hmacKey != "" {
		for _, item := range items {
			valid, err := notification.Validate(item, s.hmacKey)
			if err != nil {
				s.logger.WithError(err).WithField("psp_reference", item.PspReference).Error("HMAC validation error")
				return fmt.Errorf("%w: %v", ErrSignatureCheck, err)
			}
			if !valid {
				s.logger.WithField("psp_reference", item.PspReference).Error("Invalid HMAC signature")
				return ErrInvalidSignature
			}
		}
	}

	for _, item := range items {
		if err := s.handleItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *WebhookService) handleItem(ctx context.Context, item notification.Item) error {
	logger := s.logger.WithFields(logrus.Fields{
		"event_code":    item.EventCode,
		"psp_reference": item.PspReference,
		"success":       bool(item.Success),
	})
	logger.Info("Processing webhook item")
	if s.observer != nil {
		s.observer.ObserveWebhook(item.EventCode)
	}

	switch item.EventCode {
	case notification.EventRecurringContract:
		if err := s.handleRecurringContract(ctx, item, logger); err != nil {
			return err
		}
	case notification.EventAuthorisation:
		if item.Success {
			logger.WithFields(logrus.Fields{
				"amount":             item.Amount.Value,
				"currency":           item.Amount.Currency,
				"merchant_reference": item.MerchantReference,
			}).Info("Authorisation successful")
		} else {
			logger.WithFields(logrus.Fields{
				"reason":             item.Reason,
				"merchant_reference": item.MerchantReference,
			}).Warn("Authorisation failed")
		}
	default:
		logger.Info("Unhandled webhook event code")
	}

	s.publish(ctx, item, logger)
	return nil
}

func (s *WebhookService) handleRecurringContract(ctx context.Context, item notification.Item, logger logrus.FieldLogger) error {
	if !item.Success {
		logger.WithField("reason", item.Reason).Warn("Recurring contract failed")
		return nil
	}

	shopperReference := item.Additional(payment.RecurringShopperReferenceKey)
	recurringDetailReference := item.Additional(payment.RecurringDetailReferenceKey)
	if shopperReference == "" || recurringDetailReference == "" {
		logger.WithFields(logrus.Fields{
			"shopper_reference":          shopperReference,
			"recurring_detail_reference": recurringDetailReference,
		}).Warn("Recurring contract missing required data")
		return nil
	}

	token := &entity.RecurringToken{
		ShopperReference:         shopperReference,
		RecurringDetailReference: recurringDetailReference,
	}
	if err := s.tokenRepo.Store(ctx, token); err != nil {
		return err
	}
	logger.WithField("shopper_reference", shopperReference).Info("Stored recurring token")
	return nil
}

func (s *WebhookService) publish(ctx context.Context, item notification.Item, logger logrus.FieldLogger) {
	event := events.NotificationEvent{
		EventCode:         item.EventCode,
		PspReference:      item.PspReference,
		MerchantReference: item.MerchantReference,
		ShopperReference:  item.Additional(payment.RecurringShopperReferenceKey),
		Success:           bool(item.Success),
		Reason:            item.Reason,
		AmountValue:       item.Amount.Value,
		AmountCurrency:    item.Amount.Currency,
		ReceivedAt:        time.Now().UTC(),
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.PublishNotification(publishCtx, event); err != nil {
		logger.WithError(err).Warn("Failed to publish notification event")
	}
}
