// Package paymentwebhook принимает уведомления платёжного шлюза и проводит
// успешные платежи так же, как ручное подтверждение.
package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/paymentprovider"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// SignatureHeader — заголовок с подписью тела уведомления.
const SignatureHeader = "Stripe-Signature"

const maxBodyBytes = 64 << 10

// Settler проводит подтверждённый платёж.
type Settler interface {
	Settle(ctx context.Context, userUID, externalRef string) (*subscription.SettleResult, error)
}

type Handler struct {
	log           *slog.Logger
	settler       Settler
	webhookSecret string
}

func New(log *slog.Logger, settler Settler, secret string) *Handler {
	return &Handler{
		log:           log,
		settler:       settler,
		webhookSecret: secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := paymentprovider.ConstructEvent(body, r.Header.Get(SignatureHeader), h.webhookSecret, paymentprovider.DefaultTolerance)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrInvalidSignature) || errors.Is(err, paymentprovider.ErrSignatureExpired) {
			log.Warn("invalid webhook signature", sl.Err(err))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		log.Error("failed to parse webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log = log.With(slog.String("event", event.Type), slog.String("payment_ref", event.PaymentRef()))
	if !event.Succeeded() {
		log.Info("ignored webhook event")
		w.WriteHeader(http.StatusOK)
		return
	}

	userUID := event.UserUID()
	if userUID == "" {
		log.Error("payment has no user_uid in metadata")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := h.settler.Settle(r.Context(), userUID, event.PaymentRef())
	switch {
	case errors.Is(err, subscription.ErrSettlementInProgress):
		log.Info("settlement in progress, asking gateway to retry")
		w.WriteHeader(http.StatusConflict)
		return
	case errors.Is(err, subscription.ErrPersistence):
		log.Error("failed to settle payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	case err != nil:
		log.Error("payment rejected", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	log.Info("webhook processed successfully", slog.Bool("duplicate", result.Duplicate))
	w.WriteHeader(http.StatusOK)
}
