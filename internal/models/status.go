// Package models содержит доменные структуры платформы: пользователя-музыканта,
// запись платёжного журнала, статус подписки и сообщения уведомлений.
package models

import "fmt"

// Status — статус подписки пользователя. Набор значений закрыт,
// все места использования обязаны обрабатывать каждое из них.
type Status string

const (
	// StatusTrial — пробный период после регистрации.
	StatusTrial Status = "trial"
	// StatusActive — оплаченный период.
	StatusActive Status = "active"
	// StatusGracePeriod — платёж просрочен, доступ ещё сохраняется.
	StatusGracePeriod Status = "grace_period"
	// StatusSuspended — доступ к загрузке и прослушиванию закрыт до оплаты.
	StatusSuspended Status = "suspended"
	// StatusUnknown возвращается, когда пользователя не удалось загрузить.
	// В хранилище никогда не записывается.
	StatusUnknown Status = "unknown"
)

// ParseStatus разбирает сохранённое значение статуса.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return StatusUnknown, fmt.Errorf("models.ParseStatus: unknown subscription status %q", s)
	}
	return st, nil
}

// Valid сообщает, может ли статус храниться в базе.
func (s Status) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusGracePeriod, StatusSuspended:
		return true
	case StatusUnknown:
		return false
	default:
		return false
	}
}

// AllowsAccess сообщает, доступны ли пользователю загрузка и прослушивание треков.
func (s Status) AllowsAccess() bool {
	switch s {
	case StatusTrial, StatusActive, StatusGracePeriod:
		return true
	case StatusSuspended, StatusUnknown:
		return false
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
