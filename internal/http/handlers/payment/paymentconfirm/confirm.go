// Package paymentconfirm проводит платёж, подтверждённый клиентом после оплаты.
package paymentconfirm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/omawina-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/omawina-hub/internal/http/response"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// Request — тело запроса подтверждения платежа.
type Request struct {
	PaymentRef string `json:"payment_ref" validate:"required,max=255"`
}

// Settler проводит подтверждённый платёж.
type Settler interface {
	Settle(ctx context.Context, userUID, externalRef string) (*subscription.SettleResult, error)
}

type Handler struct {
	log      *slog.Logger
	settler  Settler
	validate *validator.Validate
}

func New(log *slog.Logger, settler Settler) *Handler {
	return &Handler{
		log:      log,
		settler:  settler,
		validate: validator.New(),
	}
}

// StatusForError возвращает HTTP-статус для ошибки проведения платежа.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, subscription.ErrGatewayUnconfirmed):
		return http.StatusPaymentRequired, "payment is not confirmed"
	case errors.Is(err, subscription.ErrUserMismatch):
		return http.StatusForbidden, "payment belongs to another user"
	case errors.Is(err, subscription.ErrSettlementInProgress):
		return http.StatusConflict, "payment is being processed, retry later"
	case errors.Is(err, storage.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"
	log := h.log.With(slog.String("op", op))

	userUID, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		log.Error("user UID not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	result, err := h.settler.Settle(r.Context(), userUID, req.PaymentRef)
	if err != nil {
		code, msg := StatusForError(err)
		log.Error("failed to settle payment", slog.String("payment_ref", req.PaymentRef), sl.Err(err))
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
