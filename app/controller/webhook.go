package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
)

const maxWebhookBodyBytes = 1 << 20

type WebhookController struct {
	webhookService *service.WebhookService
	logger         logrus.FieldLogger
}

func NewWebhookController(webhookService *service.WebhookService) *WebhookController {
	return &WebhookController{
		webhookService: webhookService,
		logger:         factory.NewModuleLogger("webhook-controller"),
	}
}

// Webhooks answers in the plain-text form the processor expects.
func (c *WebhookController) Webhooks(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)
	logger.Info("Received webhook notification")

	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		logger.WithError(err).Error("Read webhook body failed")
		return ctx.String(http.StatusInternalServerError, "[error processing webhook]")
	}

	if err := c.webhookService.HandleNotification(ctx.Request().Context(), payload); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			return ctx.String(http.StatusBadRequest, "[invalid hmac signature]")
		case errors.Is(err, service.ErrSignatureCheck):
			return ctx.String(http.StatusBadRequest, "[hmac validation error]")
		default:
			logger.WithError(err).Error("Error processing webhook")
			return ctx.String(http.StatusInternalServerError, "[error processing webhook]")
		}
	}

	return ctx.String(http.StatusAccepted, "[accepted]")
}
