package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

func TestDaysRemaining(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		user models.User
		now  time.Time
		want int
	}{
		{
			name: "trial day ten",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(10 * Day),
			want: 4,
		},
		{
			name: "partial day rounds up",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(13*Day + time.Hour),
			want: 1,
		},
		{
			name: "trial ended",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(14 * Day),
			want: 0,
		},
		{
			name: "never negative",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(40 * Day),
			want: 0,
		},
		{
			name: "active until due",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusActive,
				LastPaymentDate: ptr(t0), NextPaymentDue: ptr(t0.Add(90 * Day)),
			},
			now:  t0.Add(30 * Day),
			want: 60,
		},
		{
			name: "active without due date",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusActive, LastPaymentDate: ptr(t0)},
			now:  t0,
			want: 0,
		},
		{
			name: "grace past due",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusGracePeriod, NextPaymentDue: ptr(t0.Add(90 * Day))},
			now:  t0.Add(92 * Day),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			assert.Equal(t, tt.want, DaysRemaining(p, &u, tt.now))
		})
	}
}

func TestGraceDaysRemaining(t *testing.T) {
	p := DefaultPolicy()

	grace := models.User{TrialStart: t0, SubscriptionStatus: models.StatusGracePeriod}
	assert.Equal(t, 5, GraceDaysRemaining(p, &grace, t0.Add(16*Day)))
	assert.Equal(t, 0, GraceDaysRemaining(p, &grace, t0.Add(22*Day)))

	trial := models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial}
	assert.Equal(t, 0, GraceDaysRemaining(p, &trial, t0.Add(Day)))
}
