package client

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
)

const GenericErrorNotice = "Error occurred. Look at console for details."

// CheckoutSession is what the hosted UI needs to mount.
type CheckoutSession struct {
	ClientKey      string
	PaymentMethods SubscriptionResult
}

// Renderer mounts the hosted checkout UI.
type Renderer interface {
	Render(ctx context.Context, session CheckoutSession) error
}

// Notifier shows a message to the shopper.
type Notifier interface {
	Alert(message string)
}

type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota + 1
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of a redirect-driven payment.
type Outcome struct {
	Kind     OutcomeKind
	Response SubscriptionResult
	Err      error
}

type OutcomeHandler func(outcome Outcome)

// OutcomeFromResult classifies a payment response by its resultCode.
func OutcomeFromResult(result SubscriptionResult) Outcome {
	code, _ := result["resultCode"].(string)
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "authorised", "pending", "received":
		return Outcome{Kind: OutcomeCompleted, Response: result}
	default:
		return Outcome{Kind: OutcomeFailed, Response: result}
	}
}

type Checkout struct {
	client   *SubscriptionClient
	renderer Renderer
	notifier Notifier
	handler  OutcomeHandler
	logger   logrus.FieldLogger
}

// NewCheckout wires the hosted flow. A nil handler drops outcomes.
func NewCheckout(client *SubscriptionClient, renderer Renderer, notifier Notifier, handler OutcomeHandler) *Checkout {
	if handler == nil {
		handler = func(Outcome) {}
	}
	return &Checkout{
		client:   client,
		renderer: renderer,
		notifier: notifier,
		handler:  handler,
		logger:   factory.NewModuleLogger("checkout"),
	}
}

// StartCheckout loads the payment methods and mounts the UI. Failures are
// logged and surfaced to the shopper as a generic notice; they never
// propagate.
func (c *Checkout) StartCheckout(ctx context.Context) {
	if err := c.start(ctx); err != nil {
		c.logger.WithError(err).Error("Start checkout failed")
		if c.notifier != nil {
			c.notifier.Alert(GenericErrorNotice)
		}
	}
}

func (c *Checkout) start(ctx context.Context) error {
	methods, err := c.client.PaymentMethods(ctx)
	if err != nil {
		return err
	}
	if c.renderer == nil {
		return nil
	}
	return c.renderer.Render(ctx, CheckoutSession{
		ClientKey:      c.client.ClientKey(),
		PaymentMethods: methods,
	})
}

// HandleOutcome hands a completed or failed payment to the outcome handler.
func (c *Checkout) HandleOutcome(outcome Outcome) {
	c.logger.WithField("outcome", outcome.Kind.String()).Info("Payment outcome")
	c.handler(outcome)
}

// HandleRedirectResult resolves the redirect result with the backend and
// delivers the resulting outcome. Transport failures are delivered as
// OutcomeFailed with Err set.
func (c *Checkout) HandleRedirectResult(ctx context.Context, redirectResult string) {
	result, err := c.client.PaymentDetails(ctx, redirectResult)
	if err != nil {
		c.HandleOutcome(Outcome{Kind: OutcomeFailed, Err: err})
		return
	}
	c.HandleOutcome(OutcomeFromResult(result))
}
