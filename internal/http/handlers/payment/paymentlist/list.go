// Package paymentlist отдаёт журнал платежей пользователя.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/omawina-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/omawina-hub/internal/http/response"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

type PaymentService interface {
	PaymentHistory(ctx context.Context, userUID string) ([]*models.Payment, error)
}

type Handler struct {
	log            *slog.Logger
	paymentService PaymentService
}

func New(log *slog.Logger, ps PaymentService) *Handler {
	return &Handler{
		log:            log,
		paymentService: ps,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
	log := h.log.With(slog.String("op", op))

	userUID, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		log.Error("user UID not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	payments, err := h.paymentService.PaymentHistory(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get payments", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Debug("list payments", slog.Int("count", len(payments)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(payments),
		"payments":   payments,
	}))
}
