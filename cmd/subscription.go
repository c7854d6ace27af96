package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-checkout/app/client"
)

var createData string

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Call the subscription endpoints of a running checkout service",
}

var subscriptionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a subscription from payment data (JSON or @file)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		paymentData, err := readPaymentData(createData, cmd.InOrStdin())
		if err != nil {
			return err
		}
		result, err := newSubscriptionClient().CreateSubscription(cmd.Context(), paymentData)
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), result)
	},
}

var subscriptionChargeCmd = &cobra.Command{
	Use:   "charge <shopper-reference>",
	Short: "Charge the stored token of a shopper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newSubscriptionClient().ChargeSubscription(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), result)
	},
}

var subscriptionCancelCmd = &cobra.Command{
	Use:   "cancel <shopper-reference>",
	Short: "Cancel the stored token of a shopper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newSubscriptionClient().CancelSubscription(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), result)
	},
}

var paymentMethodsCmd = &cobra.Command{
	Use:   "payment-methods",
	Short: "Start a checkout session and print it",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		checkout := client.NewCheckout(
			newSubscriptionClient(),
			jsonRenderer{out: cmd.OutOrStdout()},
			writerNotifier{out: cmd.ErrOrStderr()},
			nil,
		)
		checkout.StartCheckout(cmd.Context())
	},
}

var redirectCmd = &cobra.Command{
	Use:   "redirect <redirect-result>",
	Short: "Resolve a shopper redirect result and print the outcome",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		checkout := client.NewCheckout(
			newSubscriptionClient(),
			jsonRenderer{out: out},
			writerNotifier{out: cmd.ErrOrStderr()},
			func(outcome client.Outcome) { printOutcome(out, outcome) },
		)
		checkout.HandleRedirectResult(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(paymentMethodsCmd)
	rootCmd.AddCommand(redirectCmd)
	subscriptionCmd.AddCommand(subscriptionCreateCmd)
	subscriptionCmd.AddCommand(subscriptionChargeCmd)
	subscriptionCmd.AddCommand(subscriptionCancelCmd)

	subscriptionCreateCmd.Flags().StringVar(&createData, "data", "", "Payment data as JSON, @file, or - for stdin")
	_ = subscriptionCreateCmd.MarkFlagRequired("data")
}

func newSubscriptionClient() *client.SubscriptionClient {
	cfg := mustLoadConfig()
	return client.New(client.Config{
		BaseURL:   cfg.Client.BaseURL,
		ClientKey: cfg.Adyen.ClientKey,
	})
}

// readPaymentData accepts inline JSON, @path or "-" for stdin.
func readPaymentData(data string, stdin io.Reader) (client.PaymentData, error) {
	data = strings.TrimSpace(data)
	var raw []byte
	switch {
	case data == "":
		return nil, errors.New("payment data is required")
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read payment data: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read payment data: %w", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	var paymentData client.PaymentData
	if err := json.Unmarshal(raw, &paymentData); err != nil {
		return nil, fmt.Errorf("payment data must be a JSON object: %w", err)
	}
	if paymentData == nil {
		return nil, errors.New("payment data must be a JSON object")
	}
	return paymentData, nil
}

func writeResult(out io.Writer, result any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type jsonRenderer struct {
	out io.Writer
}

func (r jsonRenderer) Render(_ context.Context, session client.CheckoutSession) error {
	return writeResult(r.out, map[string]any{
		"clientKey":      session.ClientKey,
		"paymentMethods": session.PaymentMethods,
	})
}

type writerNotifier struct {
	out io.Writer
}

func (n writerNotifier) Alert(message string) {
	fmt.Fprintln(n.out, message)
}

func printOutcome(out io.Writer, outcome client.Outcome) {
	payload := map[string]any{"outcome": outcome.Kind.String()}
	if outcome.Response != nil {
		payload["response"] = outcome.Response
	}
	if outcome.Err != nil {
		payload["error"] = outcome.Err.Error()
	}
	_ = writeResult(out, payload)
}
