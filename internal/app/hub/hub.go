package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/omawina-hub/internal/cache"
	"github.com/magabrotheeeer/omawina-hub/internal/config"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/migrations"
	"github.com/magabrotheeeer/omawina-hub/internal/notify"
	"github.com/magabrotheeeer/omawina-hub/internal/paymentprovider"
	accountservice "github.com/magabrotheeeer/omawina-hub/internal/services/accounts"
	"github.com/magabrotheeeer/omawina-hub/internal/storage/repository"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// App — HTTP-сервис платформы.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, кэш и брокер, применяет миграции и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}

	if cfg.IsDemoGateway() {
		logger.Warn("payment gateway runs in demo mode, every payment is confirmed")
	}

	policy := subscription.PolicyFromConfig(cfg.Subscription)
	publisher := notify.NewPublisher(notify.NewChannelBroker(ch), logger)
	provider := paymentprovider.New(cfg.PaymentGateway, cfg.Subscription, logger)
	engine := subscription.NewEngine(db, db, provider, publisher, policy, logger,
		subscription.WithCache(cacheRedis),
		subscription.WithLocker(cacheRedis),
	)
	accounts := accountservice.NewAccountService(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), publisher, policy, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Logger:        logger,
		Accounts:      accounts,
		Engine:        engine,
		Provider:      provider,
		DB:            db.DB,
		PriceAmount:   cfg.PriceAmount,
		Currency:      cfg.Currency,
		WebhookSecret: cfg.WebhookSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		if err := a.server.Shutdown(timeoutCtx); err != nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	a.close()
	return runErr
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
