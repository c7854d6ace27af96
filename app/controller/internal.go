package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
)

// InternalController serves operator endpoints behind internal auth.
type InternalController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewInternalController(subscriptionService *service.SubscriptionService) *InternalController {
	return &InternalController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("internal-controller"),
	}
}

func (c *InternalController) ListTokens(ctx echo.Context) error {
	tokens, err := c.subscriptionService.ListTokens(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List tokens failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.JSON(http.StatusOK, mapper.RecurringTokensToDTO(tokens))
}

func (c *InternalController) RunRenewals(ctx echo.Context) error {
	report, err := c.subscriptionService.RunRenewalBatch(ctx.Request().Context())
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Renewal batch failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.JSON(http.StatusOK, mapper.RenewalReportToDTO(report))
}
