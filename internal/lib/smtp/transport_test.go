package smtp

import (
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/omawina-hub/internal/config"
)

func TestTransport_Enabled(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.False(t, NewTransport(config.SMTP{}, log).Enabled())
	assert.True(t, NewTransport(config.SMTP{SMTPHost: "smtp.example.com"}, log).Enabled())
	assert.Equal(t, "noreply@omawina.app", NewTransport(config.SMTP{SMTPUser: "noreply@omawina.app"}, log).From())
}

func TestTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	tr := NewTransport(config.SMTP{SMTPHost: "127.0.0.1", SMTPPort: port}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sess, err := tr.Connect()
	assert.Nil(t, sess)
	assert.Error(t, err)
}

func TestLetter_Bytes(t *testing.T) {
	date := time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC)
	msg := string(Letter{
		From:    "billing@omawina.app",
		To:      "artist@example.com",
		Subject: "Payment Reminder",
		Body:    "Hello",
		Date:    date,
	}.Bytes())

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "Hello", body)
	assert.Equal(t, []string{
		"From: billing@omawina.app",
		"To: artist@example.com",
		"Subject: Payment Reminder",
		"Date: Sat, 10 May 2025 09:00:00 +0000",
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
	}, strings.Split(head, "\r\n"))
}

func TestLetter_BytesEncodesSubject(t *testing.T) {
	msg := string(Letter{Subject: "Ваша подписка"}.Bytes())
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "\r\nDate: ")
}
