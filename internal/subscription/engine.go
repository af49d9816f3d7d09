package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/metrics"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

// UserRepository определяет методы работы с пользователями в хранилище.
type UserRepository interface {
	// GetUser возвращает пользователя или storage.ErrUserNotFound.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// CompareAndSetStatus меняет статус, только если сохранённый равен from.
	CompareAndSetStatus(ctx context.Context, userUID string, from, to models.Status) (bool, error)
}

// PaymentRepository определяет методы работы с платёжным журналом.
type PaymentRepository interface {
	// GetPaymentByRef возвращает строку журнала или storage.ErrPaymentNotFound.
	GetPaymentByRef(ctx context.Context, externalRef string) (*models.Payment, error)
	// SettlePayment атомарно добавляет строку журнала и продлевает подписку
	// пользователя. Повтор внешнего идентификатора даёт storage.ErrPaymentExists.
	SettlePayment(ctx context.Context, payment models.Payment) error
	ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error)
}

// Gateway проверяет платёж во внешнем платёжном шлюзе.
type Gateway interface {
	VerifyPayment(ctx context.Context, externalRef string) (*models.PaymentVerification, error)
}

// Notifier отправляет уведомления по принципу fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, template models.Template, params map[string]string)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Locker выдаёт блокировку по ключу на время ttl.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// Engine связывает вычисление статуса с хранилищем, шлюзом и уведомлениями.
// Состояния между вызовами не хранит.
type Engine struct {
	users    UserRepository
	payments PaymentRepository
	gateway  Gateway
	notifier Notifier
	cache    Cache
	locker   Locker
	policy   Policy
	log      *slog.Logger
	now      func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithCache включает кэширование истории платежей.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLocker включает блокировку проведения платежей по пользователю.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine создает новый экземпляр Engine.
func NewEngine(users UserRepository, payments PaymentRepository, gateway Gateway, notifier Notifier,
	policy Policy, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		users:    users,
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		policy:   policy,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy возвращает правила, с которыми работает Engine.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Evaluate загружает пользователя и возвращает его текущий статус.
// Если пользователя загрузить не удалось, возвращает StatusUnknown и ничего не пишет.
func (e *Engine) Evaluate(ctx context.Context, userUID string) (models.Status, error) {
	const op = "subscription.Evaluate"

	user, err := e.users.GetUser(ctx, userUID)
	if err != nil {
		return models.StatusUnknown, fmt.Errorf("%s: %w", op, err)
	}
	return e.EvaluateUser(ctx, user), nil
}

// EvaluateUser вычисляет статус и, если он отличается от сохранённого, записывает
// переход. Ошибка записи не мешает вернуть вычисленный статус: следующий вызов
// повторит тот же расчёт. user.SubscriptionStatus обновляется до вычисленного значения.
func (e *Engine) EvaluateUser(ctx context.Context, user *models.User) models.Status {
	return e.evaluateAt(ctx, user, e.now())
}

func (e *Engine) evaluateAt(ctx context.Context, user *models.User, now time.Time) models.Status {
	const op = "subscription.EvaluateUser"
	log := e.log.With(slog.String("op", op), slog.String("user_uid", user.UUID))

	from := user.SubscriptionStatus
	computed := Compute(e.policy, user, now)
	if computed == from {
		return computed
	}
	user.SubscriptionStatus = computed

	swapped, err := e.users.CompareAndSetStatus(ctx, user.UUID, from, computed)
	if err != nil {
		log.Warn("failed to persist status transition",
			slog.String("from", from.String()), slog.String("to", computed.String()), sl.Err(err))
		return computed
	}
	if !swapped {
		log.Debug("status already changed by concurrent request", slog.String("to", computed.String()))
		return computed
	}

	metrics.StatusTransitions.WithLabelValues(from.String(), computed.String()).Inc()
	log.Info("subscription status changed",
		slog.String("from", from.String()), slog.String("to", computed.String()))

	e.notifyTransition(ctx, user, computed, now)
	return computed
}

func (e *Engine) notifyTransition(ctx context.Context, user *models.User, to models.Status, now time.Time) {
	if e.notifier == nil {
		return
	}
	switch to {
	case models.StatusGracePeriod:
		suspendAt := dueDate(e.policy, user).Add(e.policy.GracePeriod)
		e.notifier.Notify(ctx, user, models.TemplateGraceWarning, map[string]string{
			"grace_days":      fmt.Sprint(GraceDaysRemaining(e.policy, user, now)),
			"suspension_date": suspendAt.Format(time.DateOnly),
		})
	case models.StatusSuspended:
		e.notifier.Notify(ctx, user, models.TemplateSuspension, nil)
	case models.StatusTrial, models.StatusActive, models.StatusUnknown:
	}
}

// Overview — сводка подписки для интерфейса.
type Overview struct {
	Status             models.Status `json:"status"`
	DaysRemaining      int           `json:"days_remaining"`
	GraceDaysRemaining int           `json:"grace_days_remaining"`
	TrialEndsAt        time.Time     `json:"trial_ends_at"`
	LastPaymentDate    *time.Time    `json:"last_payment_date,omitempty"`
	NextPaymentDue     *time.Time    `json:"next_payment_due,omitempty"`
}

// Overview вычисляет статус пользователя и оставшееся время.
func (e *Engine) Overview(ctx context.Context, userUID string) (*Overview, error) {
	const op = "subscription.Overview"

	user, err := e.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := e.now()
	status := e.evaluateAt(ctx, user, now)

	return &Overview{
		Status:             status,
		DaysRemaining:      DaysRemaining(e.policy, user, now),
		GraceDaysRemaining: GraceDaysRemaining(e.policy, user, now),
		TrialEndsAt:        e.policy.TrialEnd(user.TrialStart),
		LastPaymentDate:    user.LastPaymentDate,
		NextPaymentDue:     user.NextPaymentDue,
	}, nil
}
