// Package hub собирает HTTP API платформы: вход, сводку подписки, платежи
// и проверку доступа к загрузке треков.
package hub

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/access/uploads"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/health"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/payment/paymentconfirm"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/payment/paymentintent"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/omawina-hub/internal/http/handlers/subscription/overview"
	"github.com/magabrotheeeer/omawina-hub/internal/http/middlewarectx"
	"github.com/magabrotheeeer/omawina-hub/internal/paymentprovider"
	accountservice "github.com/magabrotheeeer/omawina-hub/internal/services/accounts"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// Deps — зависимости обработчиков.
type Deps struct {
	Logger        *slog.Logger
	Accounts      *accountservice.AccountService
	Engine        *subscription.Engine
	Provider      paymentprovider.Provider
	DB            health.Pinger
	PriceAmount   int64
	Currency      string
	WebhookSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware,
	)

	limiter := middlewarectx.NewRateLimiter(rate.Limit(5), 10)

	r.Get("/health", health.New(d.Logger, d.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.With(middlewarectx.RateLimitMiddleware(d.Logger, limiter)).
			Post("/login", login.New(d.Logger, d.Accounts).ServeHTTP)

		if d.WebhookSecret != "" {
			r.Post("/payments/webhook", paymentwebhook.New(d.Logger, d.Engine, d.WebhookSecret).ServeHTTP)
		} else {
			d.Logger.Warn("webhook secret is not set, payment webhook disabled")
		}

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Accounts, d.Logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Logger, limiter))
			r.Use(middlewarectx.SubscriptionStatusMiddleware(d.Logger, d.Engine))

			r.Get("/subscription", overview.New(d.Logger, d.Engine).ServeHTTP)
			r.Get("/payments", paymentlist.New(d.Logger, d.Engine).ServeHTTP)
			r.Post("/payments/intent", paymentintent.New(d.Logger, d.Provider, d.PriceAmount, d.Currency).ServeHTTP)
			r.Post("/payments/confirm", paymentconfirm.New(d.Logger, d.Engine).ServeHTTP)
			r.With(middlewarectx.RequireAccess(d.Logger)).Get("/access/uploads", uploads.ServeHTTP)
		})
	})
}
