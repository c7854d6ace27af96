package notification

import (
	"errors"
	"testing"
)

const samplePayload = `{
  "live": "false",
  "notificationItems": [
    {
      "NotificationRequestItem": {
        "additionalData": {
          "recurring.recurringDetailReference": "8415718415172200",
          "recurring.shopperReference": "shopper-1"
        },
        "amount": {"currency": "EUR", "value": 0},
        "eventCode": "RECURRING_CONTRACT",
        "eventDate": "2026-01-01T01:00:00+01:00",
        "merchantAccountCode": "WorkshopECOM",
        "merchantReference": "ref-1",
        "pspReference": "PSP0001",
        "success": "true"
      }
    }
  ]
}`

func TestParse(t *testing.T) {
	req, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	items := req.Items()
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	item := items[0]
	if item.EventCode != EventRecurringContract || !bool(item.Success) || item.PspReference != "PSP0001" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Additional("recurring.shopperReference") != "shopper-1" {
		t.Fatalf("unexpected additional data: %+v", item.AdditionalData)
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"notificationItems":`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestFlagAcceptsBooleans(t *testing.T) {
	req, err := Parse([]byte(`{"notificationItems":[{"NotificationRequestItem":{"success":true}},{"NotificationRequestItem":{"success":"false"}}]}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	items := req.Items()
	if !bool(items[0].Success) || bool(items[1].Success) {
		t.Fatalf("unexpected flags: %+v", items)
	}
}

func TestSigningString(t *testing.T) {
	item := Item{
		PspReference:        "7914073381342284",
		MerchantAccountCode: "TestMerchant",
		MerchantReference:   "TestPayment-1407325143704",
		Amount:              Amount{Value: 1130, Currency: "EUR"},
		EventCode:           EventAuthorisation,
		Success:             true,
	}
	want := "7914073381342284::TestMerchant:TestPayment-1407325143704:1130:EUR:AUTHORISATION:true"
	if got := item.SigningString(); got != want {
		t.Fatalf("unexpected signing string:\n got %s\nwant %s", got, want)
	}
}

const publishedTestKey = "44782DEF547AAA06C910C43932B1EB0C71FC68D9D0C057550C48EC2ACF6BA056"

func publishedTestItem() Item {
	return Item{
		PspReference:        "7914073381342284",
		MerchantAccountCode: "TestMerchant",
		MerchantReference:   "TestPayment-1407325143704",
		Amount:              Amount{Value: 1130, Currency: "EUR"},
		EventCode:           EventAuthorisation,
		Success:             true,
	}
}

func TestSignMatchesPublishedValue(t *testing.T) {
	const want = "coqCmt/IZ4E3CzPvMY8zTjQVL5hYJUiBRg8UU+iCWo0="

	got, err := Sign(publishedTestItem(), publishedTestKey)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected signature: got %s want %s", got, want)
	}

	item := publishedTestItem()
	item.AdditionalData = map[string]string{"hmacSignature": want}
	if ok, err := Validate(item, publishedTestKey); err != nil || !ok {
		t.Fatalf("expected published signature to validate, got ok=%v err=%v", ok, err)
	}
}

func TestSignAndValidate(t *testing.T) {
	key := publishedTestKey
	item := publishedTestItem()

	signature, err := Sign(item, key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	item.AdditionalData = map[string]string{"hmacSignature": signature}

	ok, err := Validate(item, key)
	if err != nil || !ok {
		t.Fatalf("expected valid signature, got ok=%v err=%v", ok, err)
	}

	item.Amount.Value = 1131
	ok, err = Validate(item, key)
	if err != nil || ok {
		t.Fatalf("expected tampered item to fail, got ok=%v err=%v", ok, err)
	}
}

func TestValidateMissingSignature(t *testing.T) {
	_, err := Validate(Item{}, "00")
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestSignRejectsBadKey(t *testing.T) {
	_, err := Sign(Item{}, "not-hex")
	if !errors.Is(err, ErrInvalidHMACKey) {
		t.Fatalf("expected ErrInvalidHMACKey, got %v", err)
	}
}
