package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/metrics"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
)

const (
	settleLockTTL   = 30 * time.Second
	paymentsListTTL = 10 * time.Minute
)

// SettleResult — итог проведения платежа.
// Duplicate означает, что платёж с этим идентификатором уже был проведён ранее
// и повторный вызов ничего не изменил.
type SettleResult struct {
	Duplicate      bool            `json:"duplicate"`
	Status         models.Status   `json:"status"`
	NextPaymentDue *time.Time      `json:"next_payment_due,omitempty"`
	Payment        *models.Payment `json:"payment,omitempty"`
}

func paymentsCacheKey(userUID string) string {
	return fmt.Sprintf("payments:%s", userUID)
}

func settleLockKey(userUID string) string {
	return fmt.Sprintf("settle:%s", userUID)
}

// Settle проводит подтверждённый платёж: переводит пользователя в active
// с новой датой следующего платежа и добавляет строку в платёжный журнал.
// Платёж должен принадлежать userUID и совпадать с ценой периода.
// Повтор того же externalRef не является ошибкой и возвращает Duplicate
// с текущим статусом пользователя.
func (e *Engine) Settle(ctx context.Context, userUID, externalRef string) (*SettleResult, error) {
	const op = "subscription.Settle"
	log := e.log.With(
		slog.String("op", op),
		slog.String("user_uid", userUID),
		slog.String("payment_ref", externalRef),
	)

	if externalRef == "" {
		metrics.Settlements.WithLabelValues("unconfirmed").Inc()
		return nil, fmt.Errorf("%s: empty payment reference: %w", op, ErrGatewayUnconfirmed)
	}

	recorded, err := e.payments.GetPaymentByRef(ctx, externalRef)
	switch {
	case err == nil:
		if recorded.UserUID != userUID {
			log.Warn("payment reference belongs to another user")
			metrics.Settlements.WithLabelValues("unconfirmed").Inc()
			return nil, fmt.Errorf("%s: %w", op, ErrUserMismatch)
		}
		log.Info("duplicate payment confirmation ignored")
		return e.settledBefore(ctx, userUID)
	case !errors.Is(err, storage.ErrPaymentNotFound):
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}

	if e.locker != nil {
		unlock, acquired, err := e.locker.Lock(ctx, settleLockKey(userUID), settleLockTTL)
		switch {
		case err != nil:
			log.Warn("failed to acquire settlement lock, relying on ledger uniqueness", sl.Err(err))
		case !acquired:
			metrics.Settlements.WithLabelValues("busy").Inc()
			return nil, fmt.Errorf("%s: %w", op, ErrSettlementInProgress)
		default:
			defer unlock()
		}
	}

	user, err := e.users.GetUser(ctx, userUID)
	if err != nil {
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verification, err := e.gateway.VerifyPayment(ctx, externalRef)
	if err != nil {
		metrics.Settlements.WithLabelValues("unconfirmed").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrGatewayUnconfirmed, err)
	}
	if verification.Status != models.PaymentSucceeded {
		log.Info("payment is not succeeded", slog.String("gateway_status", string(verification.Status)))
		metrics.Settlements.WithLabelValues("unconfirmed").Inc()
		return nil, fmt.Errorf("%s: gateway status %q: %w", op, verification.Status, ErrGatewayUnconfirmed)
	}
	if verification.UserUID != userUID {
		log.Warn("payment user mismatch", slog.String("gateway_user_uid", verification.UserUID))
		metrics.Settlements.WithLabelValues("unconfirmed").Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUserMismatch)
	}
	if !e.policy.Charges(verification.Amount, verification.Currency) {
		log.Warn("payment amount does not match subscription price",
			slog.Int64("amount", verification.Amount), slog.String("currency", verification.Currency))
		metrics.Settlements.WithLabelValues("unconfirmed").Inc()
		return nil, fmt.Errorf("%s: amount %s: %w", op,
			FormatAmount(verification.Amount, verification.Currency), ErrGatewayUnconfirmed)
	}

	now := e.now()
	periodEnd := now.Add(e.policy.BillingPeriod)
	payment := models.Payment{
		UserUID:     userUID,
		ExternalRef: externalRef,
		Amount:      verification.Amount,
		Currency:    verification.Currency,
		Status:      models.PaymentSucceeded,
		PaymentDate: now,
		PeriodStart: now,
		PeriodEnd:   periodEnd,
	}

	if err := e.payments.SettlePayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrPaymentExists) {
			log.Info("payment settled concurrently, ignoring duplicate")
			return e.settledBefore(ctx, userUID)
		}
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}

	metrics.Settlements.WithLabelValues("settled").Inc()
	if user.SubscriptionStatus != models.StatusActive {
		metrics.StatusTransitions.WithLabelValues(user.SubscriptionStatus.String(), models.StatusActive.String()).Inc()
	}
	log.Info("payment settled",
		slog.String("previous_status", user.SubscriptionStatus.String()),
		slog.Time("next_payment_due", periodEnd))

	if e.cache != nil {
		if err := e.cache.Invalidate(paymentsCacheKey(userUID)); err != nil {
			log.Warn("failed to invalidate payments cache", sl.Err(err))
		}
	}

	user.SubscriptionStatus = models.StatusActive
	user.LastPaymentDate = &now
	user.NextPaymentDue = &periodEnd
	if e.notifier != nil {
		e.notifier.Notify(ctx, user, models.TemplatePaymentConfirmation, map[string]string{
			"amount":           FormatAmount(payment.Amount, payment.Currency),
			"payment_date":     now.Format(time.DateOnly),
			"next_payment_due": periodEnd.Format(time.DateOnly),
		})
	}

	return &SettleResult{
		Status:         models.StatusActive,
		NextPaymentDue: &periodEnd,
		Payment:        &payment,
	}, nil
}

// settledBefore отвечает на повторное подтверждение уже записанного платежа
// текущим статусом пользователя, который мог измениться после оплаты.
func (e *Engine) settledBefore(ctx context.Context, userUID string) (*SettleResult, error) {
	const op = "subscription.Settle"

	user, err := e.users.GetUser(ctx, userUID)
	if err != nil {
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.Settlements.WithLabelValues("duplicate").Inc()
	return &SettleResult{
		Duplicate:      true,
		Status:         e.EvaluateUser(ctx, user),
		NextPaymentDue: user.NextPaymentDue,
	}, nil
}

// PaymentHistory возвращает платежи пользователя, начиная с последнего.
func (e *Engine) PaymentHistory(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "subscription.PaymentHistory"
	cacheKey := paymentsCacheKey(userUID)

	if e.cache != nil {
		var cached []*models.Payment
		found, err := e.cache.Get(cacheKey, &cached)
		if err != nil {
			e.log.Warn("failed to read payments from cache", slog.String("key", cacheKey), sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	payments, err := e.payments.ListPayments(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if e.cache != nil {
		if err := e.cache.Set(cacheKey, payments, paymentsListTTL); err != nil {
			e.log.Warn("failed to cache payments", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return payments, nil
}

// FormatAmount печатает сумму в минимальных единицах как "100.00 NAD".
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}
