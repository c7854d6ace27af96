// Package notification decodes processor webhook notifications and verifies
// their HMAC signatures.
package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	EventRecurringContract = "RECURRING_CONTRACT"
	EventAuthorisation     = "AUTHORISATION"

	hmacSignatureKey = "hmacSignature"
)

var (
	ErrMissingSignature = errors.New("notification has no hmac signature")
	ErrInvalidHMACKey   = errors.New("hmac key is not valid hex")
)

type Request struct {
	Live              string         `json:"live"`
	NotificationItems []ItemEnvelope `json:"notificationItems"`
}

type ItemEnvelope struct {
	Item Item `json:"NotificationRequestItem"`
}

type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type Item struct {
	AdditionalData      map[string]string `json:"additionalData,omitempty"`
	Amount              Amount            `json:"amount"`
	EventCode           string            `json:"eventCode"`
	EventDate           string            `json:"eventDate,omitempty"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	MerchantReference   string            `json:"merchantReference"`
	OriginalReference   string            `json:"originalReference,omitempty"`
	PaymentMethod       string            `json:"paymentMethod,omitempty"`
	PspReference        string            `json:"pspReference"`
	Reason              string            `json:"reason,omitempty"`
	Success             Flag              `json:"success"`
}

// Flag accepts both the "true"/"false" strings the processor sends and JSON
// booleans.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = false
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	*f = Flag(v)
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatBool(bool(f)))
}

func Parse(payload []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Request) Items() []Item {
	items := make([]Item, 0, len(r.NotificationItems))
	for _, envelope := range r.NotificationItems {
		items = append(items, envelope.Item)
	}
	return items
}

func (i Item) Additional(key string) string {
	if i.AdditionalData == nil {
		return ""
	}
	return i.AdditionalData[key]
}

// SigningString is the colon-joined field list the signature is computed over.
func (i Item) SigningString() string {
	return strings.Join([]string{
		i.PspReference,
		i.OriginalReference,
		i.MerchantAccountCode,
		i.MerchantReference,
		strconv.FormatInt(i.Amount.Value, 10),
		i.Amount.Currency,
		i.EventCode,
		strconv.FormatBool(bool(i.Success)),
	}, ":")
}

// Sign computes the base64 HMAC-SHA256 of the item with a hex encoded key.
func Sign(item Item, hexKey string) (string, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return "", ErrInvalidHMACKey
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(item.SigningString()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func Validate(item Item, hexKey string) (bool, error) {
	signature := item.Additional(hmacSignatureKey)
	if signature == "" {
		return false, ErrMissingSignature
	}
	expected, err := Sign(item, hexKey)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}
