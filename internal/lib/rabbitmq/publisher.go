package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// AppID — отправитель, указываемый в свойствах сообщений уведомлений.
const AppID = "omawina-hub"

// HeaderUserUID — заголовок с пользователем, которому адресовано уведомление.
const HeaderUserUID = "user_uid"

// Notification — уведомление для публикации в NotificationsExchange.
// Template служит ключом маршрутизации и AMQP-типом сообщения.
type Notification struct {
	ID        string
	Template  string
	UserUID   string
	CreatedAt time.Time
	Payload   any
}

// Publishing собирает AMQP-сообщение уведомления. Payload сериализуется в JSON.
func (n Notification) Publishing() (amqp.Publishing, error) {
	body, err := json.Marshal(n.Payload)
	if err != nil {
		return amqp.Publishing{}, err
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Type:         n.Template,
		AppId:        AppID,
		Timestamp:    createdAt,
		Headers:      amqp.Table{HeaderUserUID: n.UserUID},
		Body:         body,
	}, nil
}

// PublishNotification публикует уведомление как persistent-сообщение
// в очередь его шаблона.
func PublishNotification(ch *amqp.Channel, n Notification) error {
	const op = "rabbitmq.PublishNotification"
	if n.Template == "" {
		return fmt.Errorf("%s: empty template", op)
	}
	msg, err := n.Publishing()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.Publish(NotificationsExchange, n.Template, false, false, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
