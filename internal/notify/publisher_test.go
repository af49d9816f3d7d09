package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/omawina-hub/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/omawina-hub/internal/metrics"
	"github.com/magabrotheeeer/omawina-hub/internal/models"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(n rabbitmq.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestPublisher_Notify(t *testing.T) {
	user := &models.User{UUID: "u1", Email: "artist@example.com", Username: "artist"}

	tests := []struct {
		name       string
		publishErr error
		result     string
	}{
		{name: "published", result: "published"},
		{name: "broker failure is swallowed", publishErr: errors.New("channel closed"), result: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := new(MockBroker)
			broker.On("Publish", mock.MatchedBy(func(n rabbitmq.Notification) bool {
				payload, ok := n.Payload.(models.Notification)
				return ok &&
					n.Template == "grace_warning" &&
					n.UserUID == "u1" &&
					n.ID != "" && n.ID == payload.ID &&
					n.CreatedAt.Equal(payload.CreatedAt) &&
					payload.Template == models.TemplateGraceWarning &&
					payload.Email == "artist@example.com" &&
					payload.Params["grace_days"] == "7"
			})).Return(tt.publishErr).Once()

			counter := metrics.Notifications.WithLabelValues(string(models.TemplateGraceWarning), tt.result)
			before := testutil.ToFloat64(counter)

			p := NewPublisher(broker, newNoopLogger())
			assert.NotPanics(t, func() {
				p.Notify(context.Background(), user, models.TemplateGraceWarning, map[string]string{"grace_days": "7"})
			})

			broker.AssertExpectations(t)
			assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.0001)
		})
	}
}
