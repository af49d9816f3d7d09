// Package notify публикует уведомления пользователям в RabbitMQ.
// Отправка писем выполняется отдельным сервисом sender.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/metrics"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

// Broker публикует уведомление в очередь его шаблона.
type Broker interface {
	Publish(n rabbitmq.Notification) error
}

// ChannelBroker публикует через канал AMQP. Публикации сериализуются мьютексом,
// так как один канал разделяется всеми запросами.
type ChannelBroker struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewChannelBroker создает Broker поверх открытого канала.
func NewChannelBroker(ch *amqp.Channel) *ChannelBroker {
	return &ChannelBroker{ch: ch}
}

// Publish реализует Broker.
func (b *ChannelBroker) Publish(n rabbitmq.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return rabbitmq.PublishNotification(b.ch, n)
}

// Publisher отправляет уведомления по принципу fire-and-forget:
// ошибки публикации логируются и никогда не возвращаются вызывающему.
type Publisher struct {
	broker Broker
	log    *slog.Logger
	now    func() time.Time
}

// NewPublisher создает новый экземпляр Publisher.
func NewPublisher(broker Broker, log *slog.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Notify публикует уведомление template для пользователя user.
func (p *Publisher) Notify(_ context.Context, user *models.User, template models.Template, params map[string]string) {
	const op = "notify.Notify"
	log := p.log.With(
		slog.String("op", op),
		slog.String("user_uid", user.UUID),
		slog.String("template", string(template)),
	)

	msg := models.Notification{
		ID:        uuid.NewString(),
		Template:  template,
		UserUID:   user.UUID,
		Email:     user.Email,
		Username:  user.Username,
		Params:    params,
		CreatedAt: p.now(),
	}

	err := p.broker.Publish(rabbitmq.Notification{
		ID:        msg.ID,
		Template:  string(template),
		UserUID:   user.UUID,
		CreatedAt: msg.CreatedAt,
		Payload:   msg,
	})
	if err != nil {
		log.Error("failed to publish notification", sl.Err(err))
		metrics.Notifications.WithLabelValues(string(template), "error").Inc()
		return
	}
	metrics.Notifications.WithLabelValues(string(template), "published").Inc()
	log.Debug("notification published", slog.String("notification_id", msg.ID))
}
