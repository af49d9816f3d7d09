package paymentprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructEvent(t *testing.T) {
	const secret = "whsec_test"
	now := time.Now()
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded","metadata":{"user_uid":"user-1"}}}}`)

	t.Run("valid signature", func(t *testing.T) {
		event, err := ConstructEvent(payload, Sign(payload, secret, now), secret, DefaultTolerance)
		require.NoError(t, err)
		assert.True(t, event.Succeeded())
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, "pi_1", event.PaymentRef())
		assert.Equal(t, "user-1", event.UserUID())
	})

	t.Run("other event types carry no payment", func(t *testing.T) {
		other := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
		event, err := ConstructEvent(other, Sign(other, secret, now), secret, DefaultTolerance)
		require.NoError(t, err)
		assert.False(t, event.Succeeded())
		assert.Empty(t, event.PaymentRef())
		assert.Empty(t, event.UserUID())
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := ConstructEvent(payload, Sign(payload, "other", now), secret, DefaultTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := Sign(payload, secret, now)
		_, err := ConstructEvent([]byte(`{"id":"evt_2"}`), header, secret, DefaultTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := ConstructEvent(payload, "", secret, DefaultTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("expired", func(t *testing.T) {
		header := Sign(payload, secret, now.Add(-10*time.Minute))
		_, err := ConstructEvent(payload, header, secret, DefaultTolerance)
		assert.ErrorIs(t, err, ErrSignatureExpired)
	})
}
