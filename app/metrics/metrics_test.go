package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("checkout-service", reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/boom", func(echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "boom") })

	for _, path := range []string{"/health", "/health", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/health", "200")); got != 2 {
		t.Fatalf("expected 2 health requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/boom", "502")); got != 1 {
		t.Fatalf("expected 1 failed request, got %v", got)
	}
}

func TestHandlerForExposesSanitizedNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("checkout-service", reg)
	m.ObserveRenewal("authorised")
	m.ObserveWebhook("AUTHORISATION")

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{
		"checkout_checkout_service_renewal_charges_total",
		"checkout_checkout_service_webhook_items_total",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in output:\n%s", name, body)
		}
	}
}

func TestObserveWebhookBoundsEventCodes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("checkout-service", reg)

	m.ObserveWebhook("RECURRING_CONTRACT")
	for i := 0; i < 3; i++ {
		m.ObserveWebhook("ATTACKER_" + strings.Repeat("X", i))
	}
	m.ObserveWebhook("")

	if got := testutil.ToFloat64(m.Webhooks.WithLabelValues("RECURRING_CONTRACT")); got != 1 {
		t.Fatalf("expected 1 known item, got %v", got)
	}
	if got := testutil.ToFloat64(m.Webhooks.WithLabelValues(OtherEventCode)); got != 4 {
		t.Fatalf("expected 4 items under %q, got %v", OtherEventCode, got)
	}
	if got := testutil.CollectAndCount(m.Webhooks); got != 2 {
		t.Fatalf("expected 2 label series, got %d", got)
	}
}
