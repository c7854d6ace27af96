package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/dto"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type SubscriptionController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &dto.HealthResponse{Status: "ok"})
}

func (c *SubscriptionController) CreateSubscription(ctx echo.Context) error {
	req, err := types.NewCreateSubscriptionRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	resp, err := c.subscriptionService.CreateSubscription(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Create subscription failed")
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *SubscriptionController) ChargeSubscription(ctx echo.Context) error {
	req, err := types.NewShopperReferenceRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	resp, err := c.subscriptionService.ChargeSubscription(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Charge subscription failed")
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *SubscriptionController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewShopperReferenceRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	token, err := c.subscriptionService.CancelSubscription(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Cancel subscription failed")
	}

	return ctx.JSON(http.StatusOK, mapper.CancelledToDTO(token))
}

func (c *SubscriptionController) handleServiceError(ctx echo.Context, err error, message string) error {
	return handleServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, message)
}

func handleServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, message string) error {
	var apiErr *payment.APIError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrTokenNotFound):
		return writeError(ctx, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr):
		logger.WithError(err).Warn(message)
		status := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		return writeError(ctx, status, apiErr.Message)
	default:
		logger.WithError(err).Error(message)
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &dto.ErrorResponse{Error: message})
}
