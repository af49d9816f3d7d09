package models

import "time"

// User представляет зарегистрированного музыканта.
// TrialStart задаётся один раз при создании и больше не меняется.
// LastPaymentDate и NextPaymentDue меняет только проведение платежа.
type User struct {
	UUID               string     `json:"uuid"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	FullName           string     `json:"full_name,omitempty"`
	TrialStart         time.Time  `json:"trial_start"`
	SubscriptionStatus Status     `json:"subscription_status"`
	LastPaymentDate    *time.Time `json:"last_payment_date,omitempty"`
	NextPaymentDue     *time.Time `json:"next_payment_due,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}
