package rabbitmq

import "github.com/magabrotheeeer/omawina-hub/internal/models"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// QueueName возвращает имя очереди писем для шаблона уведомления.
func QueueName(template models.Template) string {
	return "notifications." + string(template)
}

// GetNotificationQueues возвращает очереди для всех шаблонов уведомлений.
// Ключ маршрутизации совпадает с именем шаблона.
func GetNotificationQueues() []QueueConfig {
	templates := models.Templates()
	queues := make([]QueueConfig, 0, len(templates))
	for _, tmpl := range templates {
		queues = append(queues, QueueConfig{QueueName: QueueName(tmpl), RoutingKey: string(tmpl)})
	}
	return queues
}
