package controller

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/dto"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/payment"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/checkout.js
var checkoutScript []byte

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	ResultSuccess = "success"
	ResultPending = "pending"
	ResultFailed  = "failed"
	ResultError   = "error"
)

var resultPages = map[string]dto.ResultPage{
	ResultSuccess: {Type: ResultSuccess, Title: "Subscription active", Message: "Your payment method has been stored."},
	ResultPending: {Type: ResultPending, Title: "Payment pending", Message: "We will confirm your subscription shortly."},
	ResultFailed:  {Type: ResultFailed, Title: "Payment refused", Message: "Please try again with another payment method."},
	ResultError:   {Type: ResultError, Title: "Something went wrong", Message: "Error occurred. Please try again later."},
}

type CheckoutController struct {
	subscriptionService *service.SubscriptionService
	clientKey           string
	logger              logrus.FieldLogger
}

func NewCheckoutController(subscriptionService *service.SubscriptionService, clientKey string) *CheckoutController {
	return &CheckoutController{
		subscriptionService: subscriptionService,
		clientKey:           clientKey,
		logger:              factory.NewModuleLogger("checkout-controller"),
	}
}

func (c *CheckoutController) Index(ctx echo.Context) error {
	return c.render(ctx, http.StatusOK, "checkout.html", &dto.CheckoutPage{ClientKey: c.clientKey, Type: "dropin"})
}

// Script serves the client that mounts the drop-in and wires the page actions.
func (c *CheckoutController) Script(ctx echo.Context) error {
	return ctx.Blob(http.StatusOK, "text/javascript; charset=utf-8", checkoutScript)
}

func (c *CheckoutController) PaymentMethods(ctx echo.Context) error {
	resp, err := c.subscriptionService.PaymentMethods(ctx.Request().Context())
	if err != nil {
		return handleServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Payment methods failed")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *CheckoutController) PaymentDetails(ctx echo.Context) error {
	req, err := types.NewPaymentDetailsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	resp, err := c.subscriptionService.PaymentDetails(ctx.Request().Context(), req.GetPayload())
	if err != nil {
		return handleServiceError(ctx, factory.LoggerWithContext(c.logger, ctx), err, "Payment details failed")
	}
	return ctx.JSON(http.StatusOK, resp)
}

// HandleShopperRedirect completes a redirect payment and sends the shopper to
// the matching result page.
func (c *CheckoutController) HandleShopperRedirect(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	req, _ := types.NewShopperRedirectRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		logger.WithError(err).Warn("Shopper redirect without result")
		return ctx.Redirect(http.StatusFound, "/result/"+ResultError)
	}

	resp, err := c.subscriptionService.ResolveRedirect(ctx.Request().Context(), req)
	if err != nil {
		logger.WithError(err).Error("Resolve shopper redirect failed")
		return ctx.Redirect(http.StatusFound, "/result/"+ResultError)
	}

	code, _ := resp["resultCode"].(string)
	logger.WithField("result_code", code).Info("Shopper redirect resolved")
	return ctx.Redirect(http.StatusFound, "/result/"+resultType(code))
}

func (c *CheckoutController) Result(ctx echo.Context) error {
	req, _ := types.NewResultPageRequestFromContext(ctx)
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusNotFound, err.Error())
	}
	page := resultPages[req.Type]
	return c.render(ctx, http.StatusOK, "result.html", &page)
}

func (c *CheckoutController) render(ctx echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Render page failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
	return ctx.HTMLBlob(status, buf.Bytes())
}

func resultType(resultCode string) string {
	switch strings.TrimSpace(resultCode) {
	case payment.ResultCodeAuthorised:
		return ResultSuccess
	case payment.ResultCodePending, payment.ResultCodeReceived:
		return ResultPending
	case payment.ResultCodeRefused:
		return ResultFailed
	default:
		return ResultError
	}
}
