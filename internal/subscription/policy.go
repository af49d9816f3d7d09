// Package subscription реализует машину состояний подписки: вычисление текущего
// статуса по сохранённым датам, проведение подтверждённых платежей и расчёт
// оставшихся дней для интерфейса.
package subscription

import (
	"strings"
	"time"

	"github.com/magabrotheeeer/omawina-hub/internal/config"
)

// Day — сутки в арифметике периодов. Все периоды кратны ровно 24 часам.
const Day = 24 * time.Hour

// Policy задаёт длительности пробного периода, льготного окна и оплаченного периода,
// а также цену одного оплаченного периода в минимальных единицах валюты.
type Policy struct {
	TrialPeriod   time.Duration
	GracePeriod   time.Duration
	BillingPeriod time.Duration
	Price         int64
	Currency      string
}

// DefaultPolicy возвращает правила 14/7/90 дней по 100.00 NAD.
func DefaultPolicy() Policy {
	return Policy{
		TrialPeriod:   14 * Day,
		GracePeriod:   7 * Day,
		BillingPeriod: 90 * Day,
		Price:         10000,
		Currency:      "nad",
	}
}

// PolicyFromConfig строит Policy из секции subscription конфига.
func PolicyFromConfig(cfg config.Subscription) Policy {
	return Policy{
		TrialPeriod:   time.Duration(cfg.TrialDays) * Day,
		GracePeriod:   time.Duration(cfg.GraceDays) * Day,
		BillingPeriod: time.Duration(cfg.PeriodDays) * Day,
		Price:         cfg.PriceAmount,
		Currency:      cfg.Currency,
	}
}

// TrialEnd возвращает момент окончания пробного периода.
func (p Policy) TrialEnd(trialStart time.Time) time.Time {
	return trialStart.Add(p.TrialPeriod)
}

// Charges сообщает, совпадает ли сумма платежа с ценой периода.
// Валюта сравнивается без учёта регистра.
func (p Policy) Charges(amount int64, currency string) bool {
	return amount == p.Price && strings.EqualFold(currency, p.Currency)
}
