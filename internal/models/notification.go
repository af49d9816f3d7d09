package models

import "time"

// Template определяет тип письма, которое отправит sender.
type Template string

const (
	TemplateTrialWelcome        Template = "trial_welcome"
	TemplatePaymentReminder     Template = "payment_reminder"
	TemplateGraceWarning        Template = "grace_warning"
	TemplateSuspension          Template = "suspension"
	TemplatePaymentConfirmation Template = "payment_confirmation"
)

// Templates возвращает все известные шаблоны уведомлений.
func Templates() []Template {
	return []Template{
		TemplateTrialWelcome,
		TemplatePaymentReminder,
		TemplateGraceWarning,
		TemplateSuspension,
		TemplatePaymentConfirmation,
	}
}

// Notification — сообщение, публикуемое в RabbitMQ для сервиса отправки писем.
type Notification struct {
	ID        string            `json:"id"`
	Template  Template          `json:"template"`
	UserUID   string            `json:"user_uid"`
	Email     string            `json:"email"`
	Username  string            `json:"username"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
