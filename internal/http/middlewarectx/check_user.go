package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/omawina-hub/internal/http/response"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
)

// StatusEvaluator вычисляет текущий статус подписки пользователя.
type StatusEvaluator interface {
	Evaluate(ctx context.Context, userUID string) (models.Status, error)
}

// SubscriptionStatusMiddleware пересчитывает статус подписки на каждый запрос
// и кладёт его в контекст. Доступ здесь не ограничивается, для этого есть RequireAccess.
func SubscriptionStatusMiddleware(log *slog.Logger, evaluator StatusEvaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := UserUIDFromContext(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			status, err := evaluator.Evaluate(r.Context(), userUID)
			if errors.Is(err, storage.ErrUserNotFound) {
				log.Warn("token refers to unknown user", slog.String("user_uid", userUID))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user not found"))
				return
			}
			if err != nil {
				log.Error("failed to evaluate subscription status", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			ctx := context.WithValue(r.Context(), Status, status)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusFromContext возвращает статус, вычисленный SubscriptionStatusMiddleware.
func StatusFromContext(ctx context.Context) models.Status {
	status, ok := ctx.Value(Status).(models.Status)
	if !ok {
		return models.StatusUnknown
	}
	return status
}

// RequireAccess пропускает запрос, только если статус подписки разрешает
// загрузку и прослушивание. Для suspended отвечает 403.
func RequireAccess(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status := StatusFromContext(r.Context())
			if !status.AllowsAccess() {
				log.Info("access denied by subscription status", slog.String("status", status.String()))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("subscription suspended, payment required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
