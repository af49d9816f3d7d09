// Package paymentintent создаёт в платёжном шлюзе платёж на стоимость подписки.
package paymentintent

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/omawina-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/omawina-hub/internal/http/response"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/paymentprovider"
)

// ProviderClient определяет интерфейс для работы с платежным провайдером.
type ProviderClient interface {
	CreatePaymentIntent(ctx context.Context, userUID string, amount int64, currency string) (*paymentprovider.Intent, error)
}

// Handler обрабатывает запросы на создание платежа.
type Handler struct {
	log      *slog.Logger
	provider ProviderClient
	amount   int64
	currency string
}

// New создает новый экземпляр Handler. amount задаётся в минимальных единицах currency.
func New(log *slog.Logger, provider ProviderClient, amount int64, currency string) *Handler {
	return &Handler{
		log:      log,
		provider: provider,
		amount:   amount,
		currency: currency,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.intent"
	log := h.log.With(slog.String("op", op))

	userUID, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		log.Error("user UID not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	intent, err := h.provider.CreatePaymentIntent(r.Context(), userUID, h.amount, h.currency)
	if err != nil {
		log.Error("failed to create payment intent", sl.Err(err))
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, response.Error("payment provider error"))
		return
	}

	log.Info("payment intent created", slog.String("user_uid", userUID), slog.String("payment_ref", intent.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(intent))
}
