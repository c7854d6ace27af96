package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newBackend(t *testing.T, responseBody string, record *recordedRequest, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		body, _ := io.ReadAll(r.Body)
		if record != nil {
			*record = recordedRequest{
				method:      r.Method,
				path:        r.URL.Path,
				contentType: r.Header.Get("Content-Type"),
				body:        body,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, responseBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) (*SubscriptionClient, *logrustest.Hook) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(Config{BaseURL: baseURL, ClientKey: "test_ck", Logger: logger}), hook
}

func decodeBody(t *testing.T, raw []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("request body is not json: %v (%s)", err, raw)
	}
	return v
}

func TestCreateSubscriptionSendsPaymentDataVerbatim(t *testing.T) {
	var record recordedRequest
	var calls int32
	srv := newBackend(t, `{"resultCode":"Authorised","pspReference":"PSP1","nested":{"a":[1,2]}}`, &record, &calls)
	c, _ := newTestClient(srv.URL)

	paymentData := PaymentData{
		"paymentMethod": map[string]any{
			"type":                  "scheme",
			"encryptedCardNumber":   "test_4111111111111111",
			"encryptedSecurityCode": "test_737",
		},
		"shopperReference":   "shopper-1",
		"storePaymentMethod": true,
	}

	result, err := c.CreateSubscription(context.Background(), paymentData)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
	if record.method != http.MethodPost || record.path != CreateSubscriptionPath {
		t.Fatalf("unexpected request: %s %s", record.method, record.path)
	}
	if record.contentType != "application/json" {
		t.Fatalf("unexpected content type: %s", record.contentType)
	}

	expectedRaw, _ := json.Marshal(paymentData)
	if !reflect.DeepEqual(decodeBody(t, record.body), decodeBody(t, expectedRaw)) {
		t.Fatalf("body mismatch: got %s want %s", record.body, expectedRaw)
	}

	want := SubscriptionResult{
		"resultCode":   "Authorised",
		"pspReference": "PSP1",
		"nested":       map[string]any{"a": []any{float64(1), float64(2)}},
	}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestChargeSubscriptionScenario(t *testing.T) {
	var record recordedRequest
	srv := newBackend(t, `{"resultCode":"Authorised"}`, &record, nil)
	c, _ := newTestClient(srv.URL)

	result, err := c.ChargeSubscription(context.Background(), "shopper-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(result, SubscriptionResult{"resultCode": "Authorised"}) {
		t.Fatalf("unexpected result: %#v", result)
	}
	if record.path != ChargeSubscriptionPath {
		t.Fatalf("unexpected path: %s", record.path)
	}
	if !reflect.DeepEqual(decodeBody(t, record.body), map[string]any{"shopperReference": "shopper-123"}) {
		t.Fatalf("unexpected body: %s", record.body)
	}
}

func TestShopperReferenceBodies(t *testing.T) {
	references := []string{"", "shopper-1", "with \"quotes\" and ünïcode", "a/b?c=d"}
	operations := []struct {
		name string
		path string
		call func(c *SubscriptionClient, ref string) (SubscriptionResult, error)
	}{
		{"charge", ChargeSubscriptionPath, func(c *SubscriptionClient, ref string) (SubscriptionResult, error) {
			return c.ChargeSubscription(context.Background(), ref)
		}},
		{"cancel", CancelSubscriptionPath, func(c *SubscriptionClient, ref string) (SubscriptionResult, error) {
			return c.CancelSubscription(context.Background(), ref)
		}},
	}

	for _, op := range operations {
		for _, ref := range references {
			var record recordedRequest
			srv := newBackend(t, `{}`, &record, nil)
			c, _ := newTestClient(srv.URL)

			if _, err := op.call(c, ref); err != nil {
				t.Fatalf("%s(%q): unexpected error %v", op.name, ref, err)
			}
			if record.path != op.path {
				t.Fatalf("%s: unexpected path %s", op.name, record.path)
			}
			body, ok := decodeBody(t, record.body).(map[string]any)
			if !ok || len(body) != 1 || body["shopperReference"] != ref {
				t.Fatalf("%s(%q): unexpected body %s", op.name, ref, record.body)
			}
		}
	}
}

func TestStatusCodeIsNotInterpreted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"recurring token not found"}`)
	}))
	defer srv.Close()
	c, _ := newTestClient(srv.URL)

	result, err := c.CancelSubscription(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result["error"] != "recurring token not found" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestConnectionRefusedIsLoggedAndReturned(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c, hook := newTestClient(baseURL)

	calls := map[string]func() (SubscriptionResult, error){
		"create_subscription": func() (SubscriptionResult, error) {
			return c.CreateSubscription(context.Background(), PaymentData{"a": "b"})
		},
		"charge_subscription": func() (SubscriptionResult, error) {
			return c.ChargeSubscription(context.Background(), "shopper-1")
		},
		"cancel_subscription": func() (SubscriptionResult, error) {
			return c.CancelSubscription(context.Background(), "shopper-1")
		},
	}

	for operation, call := range calls {
		hook.Reset()
		result, err := call()
		if err == nil {
			t.Fatalf("%s: expected error", operation)
		}
		if result != nil {
			t.Fatalf("%s: expected nil result, got %#v", operation, result)
		}
		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			t.Fatalf("%s: expected *url.Error, got %T", operation, err)
		}
		if !IsRequestError(err) {
			t.Fatalf("%s: expected request error classification", operation)
		}

		entry := hook.LastEntry()
		if entry == nil || entry.Level != logrus.ErrorLevel {
			t.Fatalf("%s: expected error log entry, got %+v", operation, entry)
		}
		if entry.Data["operation"] != operation {
			t.Fatalf("%s: unexpected log fields %+v", operation, entry.Data)
		}
		if entry.Data[logrus.ErrorKey] != err {
			t.Fatalf("%s: logged error differs from returned error", operation)
		}
	}
}

type failingDoer struct {
	err error
}

func (d failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, d.err
}

func TestTransportErrorIsReturnedUnchanged(t *testing.T) {
	sentinel := errors.New("network down")
	logger, _ := logrustest.NewNullLogger()
	c := New(Config{BaseURL: "http://backend.invalid", HTTPClient: failingDoer{err: sentinel}, Logger: logger})

	_, err := c.ChargeSubscription(context.Background(), "shopper-1")
	if err != sentinel {
		t.Fatalf("expected the exact transport error, got %v", err)
	}
}

func TestNonJSONBodyFails(t *testing.T) {
	bodies := []string{"<html>oops</html>", "", `{"resultCode":"Authorised"} trailing`}
	for _, body := range bodies {
		srv := newBackend(t, body, nil, nil)
		c, hook := newTestClient(srv.URL)

		result, err := c.CreateSubscription(context.Background(), PaymentData{})
		if err == nil {
			t.Fatalf("body %q: expected parse error", body)
		}
		if result != nil {
			t.Fatalf("body %q: expected nil result, got %#v", body, result)
		}
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Fatalf("body %q: expected *json.SyntaxError, got %T", body, err)
		}
		if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.ErrorLevel {
			t.Fatalf("body %q: expected error log", body)
		}
	}
}

func TestNullBodyIsEmptyResult(t *testing.T) {
	srv := newBackend(t, "null", nil, nil)
	c, _ := newTestClient(srv.URL)

	result, err := c.ChargeSubscription(context.Background(), "shopper-1")
	if err != nil {
		t.Fatalf("expected no error for null body, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result, got %#v", result)
	}
}

func TestNonObjectBodyFails(t *testing.T) {
	for _, body := range []string{"[1,2]", "42", `"text"`} {
		srv := newBackend(t, body, nil, nil)
		c, _ := newTestClient(srv.URL)

		result, err := c.ChargeSubscription(context.Background(), "shopper-1")
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			t.Fatalf("body %q: expected *json.UnmarshalTypeError, got %v", body, err)
		}
		if result != nil || !IsRequestError(err) {
			t.Fatalf("body %q: expected request error without result, got %#v", body, result)
		}
	}
}

func TestCanceledContextFails(t *testing.T) {
	srv := newBackend(t, `{}`, nil, nil)
	c, _ := newTestClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChargeSubscription(ctx, "shopper-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewTrimsBaseURL(t *testing.T) {
	var record recordedRequest
	srv := newBackend(t, `{}`, &record, nil)
	c, _ := newTestClient(srv.URL + "/")

	if _, err := c.CancelSubscription(context.Background(), "s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.path != CancelSubscriptionPath {
		t.Fatalf("unexpected path: %s", record.path)
	}
	if c.ClientKey() != "test_ck" {
		t.Fatalf("unexpected client key: %s", c.ClientKey())
	}
}

func TestIsRequestError(t *testing.T) {
	if IsRequestError(nil) {
		t.Fatal("nil must not be a request error")
	}
	if IsRequestError(errors.New("plain")) {
		t.Fatal("plain error must not be a request error")
	}
	if !IsRequestError(&json.SyntaxError{}) {
		t.Fatal("syntax error must be a request error")
	}
}
