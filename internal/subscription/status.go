package subscription

import (
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

// dueDate возвращает конец текущего периода. Для пользователя без явной даты
// платежа им считается окончание пробного периода.
func dueDate(p Policy, u *models.User) time.Time {
	if u.NextPaymentDue != nil {
		return *u.NextPaymentDue
	}
	return p.TrialEnd(u.TrialStart)
}

// Compute вычисляет статус подписки напрямую по датам пользователя и текущему
// времени, независимо от того, как давно выполнялась предыдущая проверка.
//
// Сохранённый статус учитывается в одном случае: из suspended выводит только
// проведённый платёж, поэтому suspended сохраняется, пока расчёт не даст active.
func Compute(p Policy, u *models.User, now time.Time) models.Status {
	due := dueDate(p, u)
	graceEnd := due.Add(p.GracePeriod)

	var computed models.Status
	switch {
	case u.LastPaymentDate == nil && now.Before(p.TrialEnd(u.TrialStart)):
		computed = models.StatusTrial
	case u.LastPaymentDate != nil && u.NextPaymentDue == nil:
		computed = models.StatusActive
	case u.LastPaymentDate != nil && !now.After(due):
		computed = models.StatusActive
	case !now.After(graceEnd):
		computed = models.StatusGracePeriod
	default:
		computed = models.StatusSuspended
	}

	if u.SubscriptionStatus == models.StatusSuspended && computed != models.StatusActive {
		return models.StatusSuspended
	}
	return computed
}
