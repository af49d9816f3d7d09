package subscription

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUsers) CompareAndSetStatus(ctx context.Context, userUID string, from, to models.Status) (bool, error) {
	args := m.Called(ctx, userUID, from, to)
	return args.Bool(0), args.Error(1)
}

type MockPayments struct {
	mock.Mock
}

func (m *MockPayments) GetPaymentByRef(ctx context.Context, externalRef string) (*models.Payment, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPayments) SettlePayment(ctx context.Context, payment models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPayments) ListPayments(ctx context.Context, userUID string) ([]*models.Payment, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) VerifyPayment(ctx context.Context, externalRef string) (*models.PaymentVerification, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentVerification), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, user *models.User, template models.Template, params map[string]string) {
	m.Called(ctx, user, template, params)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
	unlocked int
}

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, key, ttl)
	return func() { m.unlocked++ }, args.Bool(0), args.Error(1)
}
