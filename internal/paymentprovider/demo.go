package paymentprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

// Demo — шлюз для локального запуска без платёжного аккаунта.
// Платёж, созданный через CreatePaymentIntent, сразу считается успешным
// и принадлежит пользователю, для которого был создан.
type Demo struct {
	amount   int64
	currency string

	mu     sync.Mutex
	owners map[string]string
}

// NewDemo создаёт демо-шлюз, подтверждающий платежи на amount.
func NewDemo(amount int64, currency string) *Demo {
	return &Demo{amount: amount, currency: currency, owners: make(map[string]string)}
}

// CreatePaymentIntent реализует Provider.
func (d *Demo) CreatePaymentIntent(_ context.Context, userUID string, amount int64, currency string) (*Intent, error) {
	id := "pi_demo_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	d.mu.Lock()
	d.owners[id] = userUID
	d.mu.Unlock()

	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_demo",
		Amount:       amount,
		Currency:     currency,
	}, nil
}

// VerifyPayment реализует Provider.
func (d *Demo) VerifyPayment(_ context.Context, externalRef string) (*models.PaymentVerification, error) {
	d.mu.Lock()
	owner, ok := d.owners[externalRef]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("paymentprovider.Demo: unknown payment %q", externalRef)
	}
	return &models.PaymentVerification{
		ExternalRef: externalRef,
		Status:      models.PaymentSucceeded,
		Amount:      d.amount,
		Currency:    d.currency,
		UserUID:     owner,
	}, nil
}
