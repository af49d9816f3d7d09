package models

import "time"

// PaymentStatus — итоговый статус платежа на стороне шлюза.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPending   PaymentStatus = "pending"
)

// Payment — строка платёжного журнала. Создаётся ровно один раз на каждый
// подтверждённый платёж и никогда не изменяется.
// PeriodEnd совпадает с NextPaymentDue, записанным пользователю в той же транзакции.
type Payment struct {
	ID          int64         `json:"id"`
	UserUID     string        `json:"user_uid"`
	ExternalRef string        `json:"external_ref"`
	Amount      int64         `json:"amount"` // в минимальных единицах валюты
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	PaymentDate time.Time     `json:"payment_date"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
}

// PaymentVerification — ответ шлюза о состоянии платежа.
// UserUID заполняется, если шлюз вернул его в метаданных платежа.
type PaymentVerification struct {
	ExternalRef string
	Status      PaymentStatus
	Amount      int64
	Currency    string
	UserUID     string
}
