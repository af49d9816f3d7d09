package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
)

// GetPaymentByRef возвращает строку журнала по внешнему идентификатору платежа.
// Если такого платежа нет, возвращает storage.ErrPaymentNotFound.
func (s *Storage) GetPaymentByRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	const op = "storage.GetPaymentByRef"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, external_ref, amount, currency, status,
			      payment_date, period_start, period_end
			  FROM payments
			  WHERE external_ref = $1`
	var p models.Payment
	var status string
	err := s.DB.QueryRowContext(ctx, query, externalRef).Scan(&p.ID, &p.UserUID, &p.ExternalRef,
		&p.Amount, &p.Currency, &status, &p.PaymentDate, &p.PeriodStart, &p.PeriodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrPaymentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Status = models.PaymentStatus(status)
	p.PaymentDate = p.PaymentDate.UTC()
	p.PeriodStart = p.PeriodStart.UTC()
	p.PeriodEnd = p.PeriodEnd.UTC()
	return &p, nil
}

// SettlePayment в одной транзакции добавляет строку в журнал и продлевает
// подписку пользователя до payment.PeriodEnd. Если платёж с тем же внешним
// идентификатором уже есть, транзакция откатывается с storage.ErrPaymentExists.
func (s *Storage) SettlePayment(ctx context.Context, payment models.Payment) error {
	const op = "storage.SettlePayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insert := `INSERT INTO payments (user_uid, external_ref, amount, currency, status,
			       payment_date, period_start, period_end)
			   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			   ON CONFLICT (external_ref) DO NOTHING`
	res, err := tx.ExecContext(ctx, insert,
		payment.UserUID, payment.ExternalRef, payment.Amount, payment.Currency,
		string(payment.Status), payment.PaymentDate, payment.PeriodStart, payment.PeriodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if inserted == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPaymentExists)
	}

	update := `UPDATE users
			   SET subscription_status = $1,
			       last_payment_date = $2,
			       next_payment_due = $3
			   WHERE uid = $4`
	res, err = tx.ExecContext(ctx, update,
		models.StatusActive.String(), payment.PaymentDate, payment.PeriodEnd, payment.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if updated == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPayments возвращает журнал платежей пользователя, начиная с последнего.
func (s *Storage) ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, external_ref, amount, currency, status,
			      payment_date, period_start, period_end
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY payment_date DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		var status string
		if err := rows.Scan(&p.ID, &p.UserUID, &p.ExternalRef, &p.Amount, &p.Currency, &status,
			&p.PaymentDate, &p.PeriodStart, &p.PeriodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.Status = models.PaymentStatus(status)
		p.PaymentDate = p.PaymentDate.UTC()
		p.PeriodStart = p.PeriodStart.UTC()
		p.PeriodEnd = p.PeriodEnd.UTC()
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
