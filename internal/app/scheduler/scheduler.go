// Package scheduler содержит приложение планировщика: периодическую проверку
// статусов подписок и рассылку напоминаний об оплате.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/omawina-hub/internal/config"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/notify"
	schedulerservice "github.com/magabrotheeeer/omawina-hub/internal/services/scheduler"
	"github.com/magabrotheeeer/omawina-hub/internal/storage/repository"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	cron             *cron.Cron
	cfg              config.Scheduler
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	policy := subscription.PolicyFromConfig(cfg.Subscription)
	publisher := notify.NewPublisher(notify.NewChannelBroker(ch), logger)
	engine := subscription.NewEngine(db, db, nil, publisher, policy, logger)

	schedulerService := schedulerservice.NewSchedulerService(db, engine, publisher, schedulerservice.Options{
		Policy:       policy,
		ReminderDays: cfg.ReminderDays,
		BatchSize:    cfg.BatchSize,
		Price:        subscription.FormatAmount(cfg.PriceAmount, cfg.Currency),
	}, logger)

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &App{
		schedulerService: schedulerService,
		cron:             c,
		cfg:              cfg.Scheduler,
		db:               db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run регистрирует задачи, запускает cron и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context)
	}{
		{"subscription review", a.cfg.ReviewSchedule, a.schedulerService.ReviewSubscriptions},
		{"payment reminders", a.cfg.ReminderSchedule, a.schedulerService.SendPaymentReminders},
	}
	for _, job := range jobs {
		run := job.run
		if _, err := a.cron.AddFunc(job.schedule, func() { run(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		a.logger.Info("scheduled job", slog.String("job", job.name), slog.String("schedule", job.schedule))
	}
	a.cron.Start()

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	<-a.cron.Stop().Done()

	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
