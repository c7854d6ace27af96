package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Renewals  *prometheus.CounterVec
	Webhooks  *prometheus.CounterVec
}

// NewServerMetrics registers the service collectors on reg. A nil reg uses
// the default registry.
func NewServerMetrics(service string, reg prometheus.Registerer) *ServerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	subsystem := strings.NewReplacer("-", "_", ".", "_").Replace(service)

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "checkout",
		Subsystem: subsystem,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	renewals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: subsystem,
		Name:      "renewal_charges_total",
		Help:      "Recurring charges attempted by the renewal job.",
	}, []string{"result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: subsystem,
		Name:      "webhook_items_total",
		Help:      "Webhook notification items received.",
	}, []string{"event_code"})

	reg.MustRegister(requests, latency, renewals, webhooks)
	return &ServerMetrics{Requests: requests, LatencyMS: latency, Renewals: renewals, Webhooks: webhooks}
}

// Middleware records one request count and latency sample per handled route.
func (m *ServerMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			handler := c.Path()
			if handler == "" {
				handler = "unmatched"
			}
			m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Microseconds()) / 1000)
			return err
		}
	}
}

// ObserveRenewal implements the renewal job's result hook.
func (m *ServerMetrics) ObserveRenewal(result string) {
	m.Renewals.WithLabelValues(result).Inc()
}

// OtherEventCode labels webhook items whose event code is not a known one.
const OtherEventCode = "other"

var knownEventCodes = map[string]struct{}{
	"AUTHORISATION":            {},
	"AUTHORISATION_ADJUSTMENT": {},
	"CANCELLATION":             {},
	"CANCEL_OR_REFUND":         {},
	"CAPTURE":                  {},
	"CAPTURE_FAILED":           {},
	"CHARGEBACK":               {},
	"CHARGEBACK_REVERSED":      {},
	"EXPIRE":                   {},
	"NOTIFICATIONOFCHARGEBACK": {},
	"OFFER_CLOSED":             {},
	"PENDING":                  {},
	"RECURRING_CONTRACT":       {},
	"REFUND":                   {},
	"REFUND_FAILED":            {},
	"REFUNDED_REVERSED":        {},
	"REPORT_AVAILABLE":         {},
	"SECOND_CHARGEBACK":        {},
	"TECHNICAL_CANCEL":         {},
	"VOID_PENDING_REFUND":      {},
	"REQUEST_FOR_INFORMATION":  {},
	"PREARBITRATION_WON":       {},
	"PREARBITRATION_LOST":      {},
	"DISABLE_RECURRING":        {},
	"RECURRING_TOKEN_DISABLED": {},
	"RECURRING_TOKEN_CREATED":  {},
}

// ObserveWebhook counts one webhook item. Event codes come from the request
// body, so unknown ones share the OtherEventCode label.
func (m *ServerMetrics) ObserveWebhook(eventCode string) {
	m.Webhooks.WithLabelValues(eventCodeLabel(eventCode)).Inc()
}

func eventCodeLabel(eventCode string) string {
	if _, ok := knownEventCodes[eventCode]; ok {
		return eventCode
	}
	return OtherEventCode
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the collectors of a specific registry.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
