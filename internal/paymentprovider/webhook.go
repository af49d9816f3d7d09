package paymentprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// DefaultTolerance — допустимое расхождение времени подписи webhook.
const DefaultTolerance = webhook.DefaultTolerance

var (
	// ErrInvalidSignature — подпись webhook отсутствует или не совпала.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrSignatureExpired — подпись webhook слишком старая.
	ErrSignatureExpired = errors.New("webhook signature expired")
)

// Sign формирует заголовок Stripe-Signature для payload, подписанного в момент at.
func Sign(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	}).Header
}

// ConstructEvent проверяет подпись заголовка header и разбирает событие.
// Объект платежа разбирается только для событий payment_intent.*.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration) (*WebhookEvent, error) {
	const op = "paymentprovider.ConstructEvent"

	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case errors.Is(err, webhook.ErrTooOld):
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureExpired)
	case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader), errors.Is(err, webhook.ErrNoValidSignature):
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(result.Type, "payment_intent.") && event.Data != nil {
		if err := json.Unmarshal(event.Data.Raw, &result.Intent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return result, nil
}
