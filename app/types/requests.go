package types

// ShopperReferenceRequest is the body of the charge and cancel endpoints.
type ShopperReferenceRequest struct {
	ShopperReference string `json:"shopperReference" validate:"required,max=255,shopperref"`
}

func (r *ShopperReferenceRequest) GetShopperReference() string {
	if r == nil {
		return ""
	}
	return r.ShopperReference
}

// CreateSubscriptionRequest carries the payment data produced by the
// checkout UI. Keys are forwarded to the processor untouched.
type CreateSubscriptionRequest struct {
	PaymentData map[string]any `validate:"required,min=1"`
}

func (r *CreateSubscriptionRequest) GetPaymentData() map[string]any {
	if r == nil {
		return nil
	}
	return r.PaymentData
}

// PaymentDetailsRequest is the body of the details endpoint, forwarded as is.
type PaymentDetailsRequest struct {
	Payload map[string]any `validate:"required,min=1"`
}

func (r *PaymentDetailsRequest) GetPayload() map[string]any {
	if r == nil {
		return nil
	}
	return r.Payload
}

// ShopperRedirectRequest carries either redirectResult or the legacy payload
// parameter. They are distinct details keys at the processor.
type ShopperRedirectRequest struct {
	RedirectResult string `form:"redirectResult"`
	Payload        string `form:"payload"`
}

func (r *ShopperRedirectRequest) GetRedirectResult() string {
	if r == nil {
		return ""
	}
	return r.RedirectResult
}

func (r *ShopperRedirectRequest) GetPayload() string {
	if r == nil {
		return ""
	}
	return r.Payload
}

type ResultPageRequest struct {
	Type string `param:"type" validate:"required,oneof=success pending failed error"`
}
