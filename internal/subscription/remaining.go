package subscription

import (
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

// DaysRemaining возвращает число дней до окончания пробного периода для trial
// и до NextPaymentDue для остальных статусов. Неполные сутки округляются вверх,
// поэтому ноль получается ровно тогда, когда порог уже наступил.
func DaysRemaining(p Policy, u *models.User, now time.Time) int {
	if u.SubscriptionStatus == models.StatusTrial {
		return daysUntil(now, p.TrialEnd(u.TrialStart))
	}
	if u.NextPaymentDue != nil {
		return daysUntil(now, *u.NextPaymentDue)
	}
	return 0
}

// GraceDaysRemaining возвращает число дней до блокировки для пользователя
// в льготном периоде. Для остальных статусов возвращает 0.
func GraceDaysRemaining(p Policy, u *models.User, now time.Time) int {
	if u.SubscriptionStatus != models.StatusGracePeriod {
		return 0
	}
	return daysUntil(now, dueDate(p, u).Add(p.GracePeriod))
}

func daysUntil(now, threshold time.Time) int {
	left := threshold.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + Day - 1) / Day)
}
