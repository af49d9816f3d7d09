package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/sl"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
	"github.com/magabrotheeeer/omawina-hub/internal/storage"
)

func newTestEngine(users *MockUsers, payments *MockPayments, gateway *MockGateway, notifier *MockNotifier, now time.Time, opts ...Option) *Engine {
	opts = append(opts, WithClock(func() time.Time { return now }))
	return NewEngine(users, payments, gateway, notifier, DefaultPolicy(), sl.Discard(), opts...)
}

func TestEngine_Evaluate(t *testing.T) {
	const uid = "user-1"

	tests := []struct {
		name       string
		now        time.Time
		setupMocks func(*MockUsers, *MockNotifier)
		want       models.Status
		wantErr    error
	}{
		{
			name: "user not found",
			now:  t0,
			setupMocks: func(u *MockUsers, _ *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(nil, fmt.Errorf("storage.GetUser: %w", storage.ErrUserNotFound)).Once()
			},
			want:    models.StatusUnknown,
			wantErr: storage.ErrUserNotFound,
		},
		{
			name: "status unchanged writes nothing",
			now:  t0.Add(5 * Day),
			setupMocks: func(u *MockUsers, _ *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusTrial}, nil).Once()
			},
			want: models.StatusTrial,
		},
		{
			name: "trial expiry moves to grace and warns",
			now:  t0.Add(14 * Day),
			setupMocks: func(u *MockUsers, n *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusTrial}, nil).Once()
				u.On("CompareAndSetStatus", mock.Anything, uid, models.StatusTrial, models.StatusGracePeriod).Return(true, nil).Once()
				n.On("Notify", mock.Anything, mock.Anything, models.TemplateGraceWarning, map[string]string{
					"grace_days":      "7",
					"suspension_date": "2025-03-22",
				}).Once()
			},
			want: models.StatusGracePeriod,
		},
		{
			name: "long inactivity jumps straight to suspended",
			now:  t0.Add(40 * Day),
			setupMocks: func(u *MockUsers, n *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusTrial}, nil).Once()
				u.On("CompareAndSetStatus", mock.Anything, uid, models.StatusTrial, models.StatusSuspended).Return(true, nil).Once()
				n.On("Notify", mock.Anything, mock.Anything, models.TemplateSuspension, map[string]string(nil)).Once()
			},
			want: models.StatusSuspended,
		},
		{
			name: "paid trial user becomes active without notification",
			now:  t0.Add(3 * Day),
			setupMocks: func(u *MockUsers, _ *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{
					UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusTrial,
					LastPaymentDate: ptr(t0.Add(2 * Day)), NextPaymentDue: ptr(t0.Add(92 * Day)),
				}, nil).Once()
				u.On("CompareAndSetStatus", mock.Anything, uid, models.StatusTrial, models.StatusActive).Return(true, nil).Once()
			},
			want: models.StatusActive,
		},
		{
			name: "concurrent writer won the transition",
			now:  t0.Add(15 * Day),
			setupMocks: func(u *MockUsers, _ *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusTrial}, nil).Once()
				u.On("CompareAndSetStatus", mock.Anything, uid, models.StatusTrial, models.StatusGracePeriod).Return(false, nil).Once()
			},
			want: models.StatusGracePeriod,
		},
		{
			name: "write failure still returns computed status",
			now:  t0.Add(30 * Day),
			setupMocks: func(u *MockUsers, _ *MockNotifier) {
				u.On("GetUser", mock.Anything, uid).Return(&models.User{UUID: uid, TrialStart: t0, SubscriptionStatus: models.StatusGracePeriod}, nil).Once()
				u.On("CompareAndSetStatus", mock.Anything, uid, models.StatusGracePeriod, models.StatusSuspended).Return(false, errors.New("db down")).Once()
			},
			want: models.StatusSuspended,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUsers)
			notifier := new(MockNotifier)
			tt.setupMocks(users, notifier)

			e := newTestEngine(users, new(MockPayments), new(MockGateway), notifier, tt.now)
			got, err := e.Evaluate(context.Background(), uid)

			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			users.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestEngine_EvaluateUserUpdatesUser(t *testing.T) {
	users := new(MockUsers)
	users.On("CompareAndSetStatus", mock.Anything, "u", models.StatusActive, models.StatusGracePeriod).Return(false, nil).Once()

	e := newTestEngine(users, new(MockPayments), new(MockGateway), nil, t0.Add(91*Day))
	u := &models.User{
		UUID: "u", TrialStart: t0, SubscriptionStatus: models.StatusActive,
		LastPaymentDate: ptr(t0), NextPaymentDue: ptr(t0.Add(90 * Day)),
	}

	assert.Equal(t, models.StatusGracePeriod, e.EvaluateUser(context.Background(), u))
	assert.Equal(t, models.StatusGracePeriod, u.SubscriptionStatus)
	users.AssertExpectations(t)
}

func TestEngine_Overview(t *testing.T) {
	users := new(MockUsers)
	users.On("GetUser", mock.Anything, "u").Return(&models.User{
		UUID: "u", TrialStart: t0, SubscriptionStatus: models.StatusTrial,
	}, nil).Once()

	e := newTestEngine(users, new(MockPayments), new(MockGateway), new(MockNotifier), t0.Add(10*Day+time.Hour))
	ov, err := e.Overview(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, models.StatusTrial, ov.Status)
	assert.Equal(t, 4, ov.DaysRemaining)
	assert.Equal(t, 0, ov.GraceDaysRemaining)
	assert.Equal(t, t0.Add(14*Day), ov.TrialEndsAt)
	assert.Nil(t, ov.LastPaymentDate)
	users.AssertExpectations(t)
}

func TestEngine_OverviewReadsClockOnce(t *testing.T) {
	users := new(MockUsers)
	users.On("GetUser", mock.Anything, "u").Return(&models.User{
		UUID: "u", TrialStart: t0, SubscriptionStatus: models.StatusTrial,
	}, nil).Once()

	// Каждое обращение к часам сдвигает время за границу пробного периода.
	ticks := []time.Time{t0.Add(14*Day - time.Second), t0.Add(14*Day + time.Second)}
	calls := 0
	clock := func() time.Time {
		tick := ticks[min(calls, len(ticks)-1)]
		calls++
		return tick
	}

	e := NewEngine(users, new(MockPayments), new(MockGateway), new(MockNotifier), DefaultPolicy(), sl.Discard(), WithClock(clock))
	ov, err := e.Overview(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, models.StatusTrial, ov.Status)
	assert.Equal(t, 1, ov.DaysRemaining)
	users.AssertExpectations(t)
}

func TestEngine_OverviewNotFound(t *testing.T) {
	users := new(MockUsers)
	users.On("GetUser", mock.Anything, "missing").Return(nil, storage.ErrUserNotFound).Once()

	e := newTestEngine(users, new(MockPayments), new(MockGateway), new(MockNotifier), t0)
	_, err := e.Overview(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
