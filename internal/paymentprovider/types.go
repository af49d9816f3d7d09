package paymentprovider

import (
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Intent — созданный в шлюзе платёж, который клиент подтверждает на своей стороне.
type Intent struct {
	ID           string `json:"payment_ref"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// WebhookEvent — уведомление шлюза о смене состояния платежа.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *stripe.PaymentIntent
}

// PaymentRef возвращает идентификатор платежа из события.
func (e WebhookEvent) PaymentRef() string {
	if e.Intent == nil {
		return ""
	}
	return e.Intent.ID
}

// UserUID возвращает пользователя, указанного в метаданных платежа.
func (e WebhookEvent) UserUID() string {
	if e.Intent == nil {
		return ""
	}
	return strings.TrimSpace(e.Intent.Metadata[metadataUserUID])
}

// Succeeded сообщает, что событие подтверждает успешную оплату.
func (e WebhookEvent) Succeeded() bool {
	return e.Type == "payment_intent.succeeded" && e.Intent != nil
}
