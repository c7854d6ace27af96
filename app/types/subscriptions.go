package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	_ = v.RegisterValidation("shopperref", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return strings.TrimSpace(value) == value && !strings.ContainsAny(value, "\r\n\t")
	})
	return v
}

func NewShopperReferenceRequestFromContext(ctx echo.Context) (*ShopperReferenceRequest, error) {
	var body ShopperReferenceRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ShopperReference = strings.TrimSpace(body.ShopperReference)
	return &body, nil
}

func (r *ShopperReferenceRequest) Validate() error {
	return validationError(validate.Struct(r))
}

func NewCreateSubscriptionRequestFromContext(ctx echo.Context) (*CreateSubscriptionRequest, error) {
	data, err := decodeObject(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &CreateSubscriptionRequest{PaymentData: data}, nil
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validationError(validate.Struct(r)); err != nil {
		return errors.New("payment data is required")
	}
	if _, ok := r.PaymentData["paymentMethod"].(map[string]any); !ok {
		return errors.New("paymentMethod is required")
	}
	if ref, ok := r.PaymentData["shopperReference"]; ok {
		s, isString := ref.(string)
		if !isString {
			return errors.New("shopperReference must be a string")
		}
		if s != "" {
			return (&ShopperReferenceRequest{ShopperReference: s}).Validate()
		}
	}
	return nil
}

func NewPaymentDetailsRequestFromContext(ctx echo.Context) (*PaymentDetailsRequest, error) {
	data, err := decodeObject(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &PaymentDetailsRequest{Payload: data}, nil
}

func (r *PaymentDetailsRequest) Validate() error {
	if err := validationError(validate.Struct(r)); err != nil {
		return errors.New("details are required")
	}
	if _, ok := r.Payload["details"].(map[string]any); !ok {
		return errors.New("details must be an object")
	}
	return nil
}

func NewShopperRedirectRequestFromContext(ctx echo.Context) (*ShopperRedirectRequest, error) {
	return &ShopperRedirectRequest{
		RedirectResult: strings.TrimSpace(ctx.FormValue("redirectResult")),
		Payload:        strings.TrimSpace(ctx.FormValue("payload")),
	}, nil
}

func (r *ShopperRedirectRequest) Validate() error {
	if r.GetRedirectResult() == "" && r.GetPayload() == "" {
		return errors.New("redirectResult or payload is required")
	}
	return nil
}

func NewResultPageRequestFromContext(ctx echo.Context) (*ResultPageRequest, error) {
	return &ResultPageRequest{Type: strings.ToLower(strings.TrimSpace(ctx.Param("type")))}, nil
}

func (r *ResultPageRequest) Validate() error {
	return validationError(validate.Struct(r))
}

// decodeObject reads a JSON object body. Numbers stay float64 so the payload
// re-encodes the way it arrived.
func decodeObject(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, errors.New("request body is required")
	}
	var data map[string]any
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is required")
		}
		return nil, err
	}
	return data, nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	fe := fieldErrors[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fieldName(fe))
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fieldName(fe), fe.Param())
	case "min":
		return fmt.Errorf("%s must not be empty", fieldName(fe))
	case "oneof":
		return fmt.Errorf("%s must be one of %s", fieldName(fe), fe.Param())
	case "shopperref":
		return fmt.Errorf("%s must not contain surrounding or control whitespace", fieldName(fe))
	default:
		return fmt.Errorf("%s is invalid", fieldName(fe))
	}
}

func fieldName(fe validator.FieldError) string {
	if fe.Field() == "" {
		return "value"
	}
	return fe.Field()
}
