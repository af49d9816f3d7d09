// Package paymentprovider реализует клиент платёжного шлюза: создание платежа
// на сумму подписки, проверку его состояния и разбор webhook-уведомлений.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/magabrotheeeer/omawina-hub/internal/config"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

const (
	metadataUserUID  = "user_uid"
	metadataPlanType = "subscription_type"
	planQuarterly    = "quarterly"
)

// ErrNotSubscriptionPayment — платёж создан не этим сервисом: в метаданных
// нет пользователя или тип плана не совпадает.
var ErrNotSubscriptionPayment = errors.New("payment is not a subscription payment")

// Provider создаёт и проверяет платежи.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, userUID string, amount int64, currency string) (*Intent, error)
	VerifyPayment(ctx context.Context, externalRef string) (*models.PaymentVerification, error)
}

// New возвращает клиент шлюза. С тестовым ключом по умолчанию возвращается
// демо-шлюз, подтверждающий любой платёж на сумму подписки.
func New(gw config.PaymentGateway, sub config.Subscription, log *slog.Logger) Provider {
	if gw.SecretKey == config.DemoGatewayKey {
		return NewDemo(sub.PriceAmount, sub.Currency)
	}
	return NewClient(gw.GatewayURL, gw.SecretKey, log)
}

// Client работает с API шлюза через stripe-go.
type Client struct {
	intents paymentintent.Client
}

// NewClient создаёт новый клиент шлюза.
func NewClient(apiURL, secretKey string, log *slog.Logger) *Client {
	return newClient(apiURL, secretKey, log, 2)
}

func newClient(apiURL, secretKey string, log *slog.Logger, retries int64) *Client {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(apiURL, "/")),
		HTTPClient:        &http.Client{Timeout: 10 * time.Second},
		MaxNetworkRetries: stripe.Int64(retries),
		LeveledLogger:     &slogLogger{log: log},
	})
	return &Client{intents: paymentintent.Client{B: backend, Key: secretKey}}
}

// CreatePaymentIntent создаёт платёж на amount минимальных единиц валюты
// и привязывает его к пользователю через метаданные.
func (c *Client) CreatePaymentIntent(ctx context.Context, userUID string, amount int64, currency string) (*Intent, error) {
	const op = "paymentprovider.CreatePaymentIntent"

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserUID, userUID)
	params.AddMetadata(metadataPlanType, planQuarterly)

	pi, err := c.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// VerifyPayment читает платёж из шлюза и приводит его состояние к PaymentStatus.
// Платёж без пользователя в метаданных или с другим типом плана не подтверждается
// и даёт ErrNotSubscriptionPayment.
func (c *Client) VerifyPayment(ctx context.Context, externalRef string) (*models.PaymentVerification, error) {
	const op = "paymentprovider.VerifyPayment"

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := c.intents.Get(externalRef, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userUID := strings.TrimSpace(pi.Metadata[metadataUserUID])
	if userUID == "" {
		return nil, fmt.Errorf("%s: %s has no %s: %w", op, pi.ID, metadataUserUID, ErrNotSubscriptionPayment)
	}
	if plan := pi.Metadata[metadataPlanType]; plan != planQuarterly {
		return nil, fmt.Errorf("%s: %s plan %q: %w", op, pi.ID, plan, ErrNotSubscriptionPayment)
	}
	return &models.PaymentVerification{
		ExternalRef: pi.ID,
		Status:      mapStatus(pi.Status),
		Amount:      pi.Amount,
		Currency:    string(pi.Currency),
		UserUID:     userUID,
	}, nil
}

func mapStatus(status stripe.PaymentIntentStatus) models.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

// slogLogger пишет сообщения stripe-go в общий логгер сервиса.
type slogLogger struct {
	log *slog.Logger
}

func (l *slogLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}
