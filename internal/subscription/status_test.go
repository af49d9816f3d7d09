package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/omawina-hub/internal/config"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

var t0 = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestCompute(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name string
		user models.User
		now  time.Time
		want models.Status
	}{
		{
			name: "fresh trial",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(10 * Day),
			want: models.StatusTrial,
		},
		{
			name: "trial ends exactly at boundary",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(14 * Day),
			want: models.StatusGracePeriod,
		},
		{
			name: "trial expired within grace",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(20 * Day),
			want: models.StatusGracePeriod,
		},
		{
			name: "grace end is inclusive",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusGracePeriod},
			now:  t0.Add(21 * Day),
			want: models.StatusGracePeriod,
		},
		{
			name: "trial expired past grace without intermediate evaluation",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial},
			now:  t0.Add(28 * Day),
			want: models.StatusSuspended,
		},
		{
			name: "explicit due date overrides trial end",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial, NextPaymentDue: ptr(t0.Add(30 * Day))},
			now:  t0.Add(25 * Day),
			want: models.StatusGracePeriod,
		},
		{
			name: "paid user before due",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusActive,
				LastPaymentDate: ptr(t0), NextPaymentDue: ptr(t0.Add(90 * Day)),
			},
			now:  t0.Add(90 * Day),
			want: models.StatusActive,
		},
		{
			name: "paid user during trial is active",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusTrial,
				LastPaymentDate: ptr(t0.Add(Day)), NextPaymentDue: ptr(t0.Add(91 * Day)),
			},
			now:  t0.Add(2 * Day),
			want: models.StatusActive,
		},
		{
			name: "paid user without due date stays active",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusActive, LastPaymentDate: ptr(t0)},
			now:  t0.Add(400 * Day),
			want: models.StatusActive,
		},
		{
			name: "paid user past due",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusActive,
				LastPaymentDate: ptr(t0), NextPaymentDue: ptr(t0.Add(90 * Day)),
			},
			now:  t0.Add(91 * Day),
			want: models.StatusGracePeriod,
		},
		{
			name: "paid user past grace",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusActive,
				LastPaymentDate: ptr(t0), NextPaymentDue: ptr(t0.Add(90 * Day)),
			},
			now:  t0.Add(98 * Day),
			want: models.StatusSuspended,
		},
		{
			name: "suspended is sticky without payment",
			user: models.User{TrialStart: t0, SubscriptionStatus: models.StatusSuspended, NextPaymentDue: ptr(t0.Add(60 * Day))},
			now:  t0.Add(20 * Day),
			want: models.StatusSuspended,
		},
		{
			name: "suspended leaves only after payment",
			user: models.User{
				TrialStart: t0, SubscriptionStatus: models.StatusSuspended,
				LastPaymentDate: ptr(t0.Add(28 * Day)), NextPaymentDue: ptr(t0.Add(118 * Day)),
			},
			now:  t0.Add(29 * Day),
			want: models.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			assert.Equal(t, tt.want, Compute(p, &u, tt.now))
		})
	}
}

func TestComputeReturnsValidStatus(t *testing.T) {
	p := DefaultPolicy()
	u := models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial}
	for d := 0; d < 200; d++ {
		got := Compute(p, &u, t0.Add(time.Duration(d)*Day))
		assert.True(t, got.Valid(), "day %d gave %q", d, got)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 14*Day, p.TrialPeriod)
	assert.Equal(t, 7*Day, p.GracePeriod)
	assert.Equal(t, 90*Day, p.BillingPeriod)
	assert.Equal(t, int64(10000), p.Price)
	assert.Equal(t, "nad", p.Currency)
	assert.Equal(t, t0.Add(14*Day), p.TrialEnd(t0))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.Subscription{
		TrialDays:   10,
		GraceDays:   3,
		PeriodDays:  30,
		PriceAmount: 4500,
		Currency:    "usd",
	})

	assert.Equal(t, Policy{
		TrialPeriod:   10 * Day,
		GracePeriod:   3 * Day,
		BillingPeriod: 30 * Day,
		Price:         4500,
		Currency:      "usd",
	}, p)
	assert.Equal(t, t0.Add(10*Day), p.TrialEnd(t0))

	u := models.User{TrialStart: t0, SubscriptionStatus: models.StatusTrial}
	assert.Equal(t, models.StatusTrial, Compute(p, &u, t0.Add(10*Day-time.Second)))
	assert.Equal(t, models.StatusGracePeriod, Compute(p, &u, t0.Add(10*Day)))
	assert.Equal(t, models.StatusSuspended, Compute(p, &u, t0.Add(13*Day+time.Second)))
}

func TestPolicy_Charges(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.Charges(10000, "nad"))
	assert.True(t, p.Charges(10000, "NAD"))
	assert.False(t, p.Charges(1, "nad"))
	assert.False(t, p.Charges(10000, "usd"))
	assert.False(t, p.Charges(10000, ""))
}
