package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
)

const userColumns = `uid, email, username, full_name, trial_start, subscription_status,
	last_payment_date, next_payment_due, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var status string
	var lastPayment, nextDue sql.NullTime
	if err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.FullName, &u.TrialStart,
		&status, &lastPayment, &nextDue, &u.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	u.SubscriptionStatus = parsed
	if lastPayment.Valid {
		t := lastPayment.Time.UTC()
		u.LastPaymentDate = &t
	}
	if nextDue.Valid {
		t := nextDue.Time.UTC()
		u.NextPaymentDue = &t
	}
	u.TrialStart = u.TrialStart.UTC()
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его UID.
// Повтор email даёт storage.ErrUserExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO users (email, username, full_name, trial_start,
			      subscription_status, next_payment_due)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.FullName, user.TrialStart,
		user.SubscriptionStatus.String(), user.NextPaymentDue).Scan(&newID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// CompareAndSetStatus меняет статус подписки, только если сохранённый статус
// всё ещё равен from. Возвращает false, если запись успел изменить другой запрос.
func (s *Storage) CompareAndSetStatus(ctx context.Context, userUID string, from, to models.Status) (bool, error) {
	const op = "storage.CompareAndSetStatus"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_status = $1
			  WHERE uid = $2 AND subscription_status = $3`
	res, err := s.DB.ExecContext(ctx, query, to.String(), userUID, from.String())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// ListUsersByStatus возвращает страницу пользователей с одним из статусов.
func (s *Storage) ListUsersByStatus(ctx context.Context, statuses []models.Status, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsersByStatus"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	values := make([]string, 0, len(statuses))
	for _, st := range statuses {
		values = append(values, st.String())
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE subscription_status = ANY($1)
			  ORDER BY created_at, uid
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, values, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
