// Package services содержит фоновые задачи планировщика подписок: проактивную
// проверку статусов и напоминания об оплате. Для корректности статусов они
// не нужны, статус всё равно пересчитывается при каждом запросе пользователя.
package services

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// UserRepository постранично отдаёт пользователей по статусам.
type UserRepository interface {
	ListUsersByStatus(ctx context.Context, statuses []models.Status, limit, offset int) ([]*models.User, error)
}

// Evaluator пересчитывает статус пользователя и записывает переход.
type Evaluator interface {
	EvaluateUser(ctx context.Context, user *models.User) models.Status
}

// Notifier отправляет уведомления по принципу fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, template models.Template, params map[string]string)
}

// Options параметры задач планировщика.
type Options struct {
	Policy       subscription.Policy
	ReminderDays []int
	BatchSize    int
	Price        string
}

type SchedulerService struct {
	repo      UserRepository
	evaluator Evaluator
	notifier  Notifier
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo UserRepository, evaluator Evaluator, notifier Notifier, opts Options, log *slog.Logger) *SchedulerService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &SchedulerService{
		repo:      repo,
		evaluator: evaluator,
		notifier:  notifier,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// allStatuses — выборка для обходов, во время которых EvaluateUser меняет
// статусы. Фильтр по статусу в запросе сдвигал бы страницы OFFSET.
var allStatuses = []models.Status{models.StatusTrial, models.StatusActive, models.StatusGracePeriod, models.StatusSuspended}

// eachUser обходит всех пользователей с указанными статусами страницами по BatchSize.
func (s *SchedulerService) eachUser(ctx context.Context, statuses []models.Status, fn func(*models.User)) error {
	for offset := 0; ; offset += s.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		users, err := s.repo.ListUsersByStatus(ctx, statuses, s.opts.BatchSize, offset)
		if err != nil {
			return err
		}
		for _, u := range users {
			fn(u)
		}
		if len(users) < s.opts.BatchSize {
			return nil
		}
	}
}

// ReviewSubscriptions пересчитывает статусы всех пользователей, чтобы переходы
// и уведомления о них происходили без ожидания следующего запроса пользователя.
func (s *SchedulerService) ReviewSubscriptions(ctx context.Context) {
	const op = "scheduler.ReviewSubscriptions"
	log := s.log.With(slog.String("op", op))
	log.Info("starting subscription review")

	reviewed, changed := 0, 0
	err := s.eachUser(ctx, allStatuses, func(u *models.User) {
		reviewed++
		before := u.SubscriptionStatus
		if after := s.evaluator.EvaluateUser(ctx, u); after != before {
			changed++
		}
	})
	if err != nil {
		log.Error("subscription review interrupted", sl.Err(err), slog.Int("reviewed", reviewed))
		return
	}
	log.Info("subscription review finished", slog.Int("reviewed", reviewed), slog.Int("changed", changed))
}

// SendPaymentReminders напоминает об оплате пользователям, у которых до конца
// пробного или оплаченного периода осталось ровно одно из ReminderDays дней.
// Статус проверяется после пересчёта, а не в запросе к хранилищу.
func (s *SchedulerService) SendPaymentReminders(ctx context.Context) {
	const op = "scheduler.SendPaymentReminders"
	log := s.log.With(slog.String("op", op))

	if len(s.opts.ReminderDays) == 0 {
		log.Debug("payment reminders disabled")
		return
	}

	sent := 0
	err := s.eachUser(ctx, allStatuses, func(u *models.User) {
		status := s.evaluator.EvaluateUser(ctx, u)
		if status != models.StatusTrial && status != models.StatusActive {
			return
		}
		now := s.now()
		days := subscription.DaysRemaining(s.opts.Policy, u, now)
		if !slices.Contains(s.opts.ReminderDays, days) {
			return
		}

		due := now.Add(time.Duration(days) * subscription.Day)
		if status == models.StatusTrial {
			due = s.opts.Policy.TrialEnd(u.TrialStart)
		} else if u.NextPaymentDue != nil {
			due = *u.NextPaymentDue
		}
		s.notifier.Notify(ctx, u, models.TemplatePaymentReminder, map[string]string{
			"days_remaining":   strconv.Itoa(days),
			"amount":           s.opts.Price,
			"next_payment_due": due.Format(time.DateOnly),
		})
		sent++
	})
	if err != nil {
		log.Error("payment reminders interrupted", sl.Err(err), slog.Int("sent", sent))
		return
	}
	log.Info("payment reminders sent", slog.Int("count", sent))
}
