// Package services содержит логику входа музыкантов: поиск пользователя по email,
// регистрацию с пробным периодом при первом входе и выпуск JWT.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/jwt"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
	"github.com/magabrotheeeer/omawina-hub/internal/subscription"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, user models.User) (string, error)
	// GetUserByEmail возвращает пользователя или storage.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Notifier отправляет уведомления по принципу fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, template models.Template, params map[string]string)
}

// Session — результат входа.
type Session struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}

// AccountService отвечает за вход и регистрацию пользователей.
type AccountService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	notifier Notifier
	policy   subscription.Policy
	log      *slog.Logger
	now      func() time.Time
}

// NewAccountService создает новый экземпляр AccountService.
func NewAccountService(users UserRepository, jwtMaker jwt.Maker, notifier Notifier, policy subscription.Policy, log *slog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		jwtMaker: jwtMaker,
		notifier: notifier,
		policy:   policy,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login находит пользователя по email или регистрирует нового с пробным периодом,
// начинающимся в момент регистрации, и выдаёт токен сессии.
func (s *AccountService) Login(ctx context.Context, email, username, fullName string) (*Session, error) {
	const op = "accounts.Login"
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	created := false
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		user, err = s.register(ctx, email, username, fullName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwtMaker.GenerateToken(user.UUID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{Token: token, User: user, Created: created}, nil
}

func (s *AccountService) register(ctx context.Context, email, username, fullName string) (*models.User, error) {
	now := s.now()
	due := s.policy.TrialEnd(now)
	user := models.User{
		Email:              email,
		Username:           username,
		FullName:           fullName,
		TrialStart:         now,
		SubscriptionStatus: models.StatusTrial,
		NextPaymentDue:     &due,
		CreatedAt:          now,
	}

	uid, err := s.users.CreateUser(ctx, user)
	if errors.Is(err, storage.ErrUserExists) {
		// Параллельный вход с тем же email успел создать пользователя.
		return s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	user.UUID = uid

	s.log.Info("user registered", slog.String("user_uid", uid))
	s.notifier.Notify(ctx, &user, models.TemplateTrialWelcome, map[string]string{
		"trial_days": strconv.Itoa(int(s.policy.TrialPeriod / subscription.Day)),
	})
	return &user, nil
}

// Authenticate проверяет токен и возвращает UID пользователя.
func (s *AccountService) Authenticate(token string) (string, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserUID(), nil
}
