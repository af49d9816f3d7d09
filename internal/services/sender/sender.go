// Package services содержит сервис отправки писем по уведомлениям из RabbitMQ.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/lib/smtp"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

const signature = "\n\nBest regards,\nThe Omawi Na Team"

// Email — готовое к отправке письмо.
type Email struct {
	To      string
	Subject string
	Body    string
}

// SenderService превращает уведомления в письма и отправляет их через SMTP.
type SenderService struct {
	transport smtp.Mailer
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.Mailer) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// HandleNotification обрабатывает тело сообщения из очереди. Нераспознаваемые
// сообщения логируются и подтверждаются, чтобы не зацикливать очередь;
// ошибка SMTP возвращается, и сообщение будет доставлено повторно.
func (s *SenderService) HandleNotification(body []byte) error {
	const op = "sender.HandleNotification"
	log := s.log.With(slog.String("op", op))

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Error("failed to unmarshal notification, dropping", sl.Err(err))
		return nil
	}
	if n.Email == "" {
		log.Error("notification without recipient, dropping", slog.String("notification_id", n.ID))
		return nil
	}

	email, err := Render(n)
	if err != nil {
		log.Error("failed to render notification, dropping", slog.String("notification_id", n.ID), sl.Err(err))
		return nil
	}

	if !s.transport.Enabled() {
		log.Info("email would be sent", slog.String("to", email.To), slog.String("subject", email.Subject))
		return nil
	}
	if err := s.sendEmail(email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Render формирует письмо по шаблону уведомления.
func Render(n models.Notification) (Email, error) {
	param := func(key, fallback string) string {
		if v, ok := n.Params[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	var subject, body string
	switch n.Template {
	case models.TemplateTrialWelcome:
		subject = "Welcome to Omawi Na!"
		body = fmt.Sprintf("Welcome to Omawi Na, %s!\n\n"+
			"Thank you for joining Omawi Na, the professional music hub for musicians.\n\n"+
			"Your %s-day free trial has started. You now have full access: upload and manage "+
			"your music, build your musician profile and share your public portfolio.\n\n"+
			"After the trial you will need to subscribe for %s per quarter to keep using Omawi Na.",
			n.Username, param("trial_days", "14"), param("amount", "100.00 NAD"))
	case models.TemplatePaymentReminder:
		days := param("days_remaining", "a few")
		subject = fmt.Sprintf("Omawi Na Payment Reminder - %s days remaining", days)
		body = fmt.Sprintf("Payment Reminder, %s\n\n"+
			"Your Omawi Na subscription payment of %s is due in %s days (%s).\n\n"+
			"To avoid any interruption to your service, please renew before the due date.",
			n.Username, param("amount", "100.00 NAD"), days, param("next_payment_due", "soon"))
	case models.TemplateGraceWarning:
		subject = "Omawi Na Account: Payment Overdue"
		body = fmt.Sprintf("Payment Overdue Warning, %s\n\n"+
			"Your Omawi Na subscription payment is overdue. You have entered a grace period "+
			"and keep full access for %s more days.\n\n"+
			"If no payment is received by %s your account will be suspended. Suspended accounts "+
			"cannot upload or stream music, but your music and profile remain safe.",
			n.Username, param("grace_days", "7"), param("suspension_date", "the end of the grace period"))
	case models.TemplateSuspension:
		subject = "Omawi Na Account Suspended - Payment Required"
		body = fmt.Sprintf("Account Suspended, %s\n\n"+
			"Your Omawi Na account has been suspended due to overdue payment. "+
			"Uploading and streaming are disabled; your music and profile data are preserved.\n\n"+
			"Your account is reactivated immediately once the payment is received.",
			n.Username)
	case models.TemplatePaymentConfirmation:
		subject = "Omawi Na Payment Confirmed - Thank You!"
		body = fmt.Sprintf("Payment Confirmed, %s!\n\n"+
			"Thank you for your payment. Your Omawi Na subscription has been renewed.\n\n"+
			"Amount paid: %s\nPayment date: %s\nNext payment due: %s\nSubscription status: Active",
			n.Username, param("amount", "-"), param("payment_date", "-"), param("next_payment_due", "-"))
	default:
		return Email{}, fmt.Errorf("unknown notification template %q", n.Template)
	}

	return Email{To: n.Email, Subject: subject, Body: body + signature}, nil
}

func (s *SenderService) sendEmail(email Email) error {
	from := s.transport.From()
	msg := smtp.Letter{From: from, To: email.To, Subject: email.Subject, Body: email.Body}.Bytes()

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	if err := client.Rcpt(email.To); err != nil {
		s.log.Error("failed to set RCPT TO", slog.String("recipient", email.To), sl.Err(err))
		return err
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write(msg); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.String("to", email.To), slog.String("subject", email.Subject))
	return nil
}
