package entity

import "time"

// RecurringToken links a shopper to the stored payment method the processor
// issued for recurring charges.
type RecurringToken struct {
	ShopperReference         string
	RecurringDetailReference string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
