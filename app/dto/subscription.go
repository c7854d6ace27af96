package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type CancelSubscriptionResponse struct {
	ShopperReference string `json:"shopperReference"`
	Status           string `json:"status"`
}

type RecurringTokenResponse struct {
	ShopperReference         string `json:"shopperReference"`
	RecurringDetailReference string `json:"recurringDetailReference"`
	CreatedAt                string `json:"createdAt"`
	UpdatedAt                string `json:"updatedAt"`
}

type RenewalReportResponse struct {
	Attempted  int `json:"attempted"`
	Authorised int `json:"authorised"`
	Refused    int `json:"refused"`
	Failed     int `json:"failed"`
}

// CheckoutPage is the view model of the checkout page template.
type CheckoutPage struct {
	ClientKey string
	Type      string
}

type ResultPage struct {
	Type    string
	Title   string
	Message string
}
