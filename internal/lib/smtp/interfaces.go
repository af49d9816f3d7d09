// Package smtp доставляет письма уведомлений подписчикам через SMTP с STARTTLS.
package smtp

import (
	"io"
	"mime"
	"strings"
	"time"
)

// Session — одно SMTP-соединение, по которому отправляется письмо.
type Session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailer открывает SMTP-сессии от имени адреса рассылки.
type Mailer interface {
	Connect() (Session, error)
	From() string
	Enabled() bool
}

// Letter — текстовое письмо уведомления.
type Letter struct {
	From    string
	To      string
	Subject string
	Body    string
	Date    time.Time
}

// Bytes собирает письмо с заголовками для команды DATA. Тема с не-ASCII
// символами кодируется по RFC 2047.
func (l Letter) Bytes() []byte {
	date := l.Date
	if date.IsZero() {
		date = time.Now()
	}
	return []byte(strings.Join([]string{
		"From: " + l.From,
		"To: " + l.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", l.Subject),
		"Date: " + date.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		l.Body,
	}, "\r\n"))
}
